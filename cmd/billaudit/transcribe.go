package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/billaudit/internal/exitcode"
	"github.com/gyeh/billaudit/internal/logging"
	"github.com/gyeh/billaudit/internal/voice"
)

var transcribeAudio string

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcribe a patient's recorded grievance",
	RunE:  runTranscribe,
}

func init() {
	transcribeCmd.Flags().StringVar(&transcribeAudio, "audio", "", "Audio file (required)")
	_ = transcribeCmd.MarkFlagRequired("audio")
	rootCmd.AddCommand(transcribeCmd)
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)

	if err := cfg.ValidateWithLLM(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	t := voice.NewTranscriber(newLLMClient(log), cfg.LLM.TranscribeModel)
	text, err := t.TranscribeFile(context.Background(), transcribeAudio)
	if err != nil {
		log.Error().Err(err).Msg("transcription failed")
		os.Exit(exitcode.ExtractError)
	}
	fmt.Println(text)
	return nil
}
