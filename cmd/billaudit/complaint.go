package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyeh/billaudit/internal/complaint"
	"github.com/gyeh/billaudit/internal/exitcode"
	"github.com/gyeh/billaudit/internal/logging"
	"github.com/gyeh/billaudit/internal/model"
	"github.com/gyeh/billaudit/internal/voice"
)

var complaintOpts struct {
	auditFile  string
	transcript string
	audio      string
	out        string
	textOnly   bool
}

var complaintCmd = &cobra.Command{
	Use:   "complaint",
	Short: "Draft a complaint letter for the overpriced items of an audit",
	RunE:  runComplaint,
}

func init() {
	f := complaintCmd.Flags()
	f.StringVar(&complaintOpts.auditFile, "audit", "", "Audit result JSON from analyze or audit (required)")
	f.StringVar(&complaintOpts.transcript, "transcript", "", "Patient's own account to include")
	f.StringVar(&complaintOpts.audio, "audio", "", "Recording of the patient's account, transcribed first")
	f.StringVar(&complaintOpts.out, "out", "complaint-letter.pdf", "PDF output path")
	f.BoolVar(&complaintOpts.textOnly, "text-only", false, "Print the letter without rendering a PDF")
	_ = complaintCmd.MarkFlagRequired("audit")
	complaintCmd.MarkFlagsMutuallyExclusive("transcript", "audio")
	rootCmd.AddCommand(complaintCmd)
}

func runComplaint(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	result, err := readAuditResult(complaintOpts.auditFile)
	if err != nil {
		log.Error().Err(err).Msg("failed to read audit result")
		os.Exit(exitcode.ValidationError)
	}

	needsModel := len(result.FlaggedItems()) > 0 || complaintOpts.audio != ""
	if needsModel {
		if err := cfg.ValidateWithLLM(); err != nil {
			log.Error().Err(err).Msg("config validation failed")
			os.Exit(exitcode.UsageError)
		}
	}
	client := newLLMClient(log)

	transcript := complaintOpts.transcript
	if complaintOpts.audio != "" {
		transcript, err = voice.NewTranscriber(client, cfg.LLM.TranscribeModel).TranscribeFile(ctx, complaintOpts.audio)
		if err != nil {
			log.Error().Err(err).Msg("transcription failed")
			os.Exit(exitcode.ExtractError)
		}
		log.Info().Int("chars", len(transcript)).Msg("voice input transcribed")
	}

	drafter := complaint.NewLLMDrafter(client, cfg.LLM.DraftModel)
	text, err := drafter.Draft(ctx, complaint.RequestFromAudit(result, transcript))
	if err != nil {
		log.Error().Err(err).Msg("complaint drafting failed")
		os.Exit(exitcode.ExtractError)
	}
	fmt.Println(text)

	if complaintOpts.textOnly {
		return nil
	}
	var buf bytes.Buffer
	if err := complaint.RenderPDF(&buf, complaint.LetterFromAudit(text, result, time.Now())); err != nil {
		log.Error().Err(err).Msg("pdf rendering failed")
		os.Exit(exitcode.RenderError)
	}
	if err := os.WriteFile(complaintOpts.out, buf.Bytes(), 0o644); err != nil {
		log.Error().Err(err).Msg("failed to write pdf")
		os.Exit(exitcode.RenderError)
	}
	log.Info().Str("path", complaintOpts.out).Int("bytes", buf.Len()).Msg("complaint letter written")
	return nil
}

func readAuditResult(path string) (*model.AuditResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var result model.AuditResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &result, nil
}
