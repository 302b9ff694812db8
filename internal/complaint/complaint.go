// Package complaint drafts a formal overcharging complaint from an audit
// result and renders it as a PDF letter.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/gyeh/billaudit/internal/llm"
	"github.com/gyeh/billaudit/internal/model"
	"github.com/gyeh/billaudit/internal/normalize"
)

const (
	// NoComplaint is the whole letter when nothing was flagged.
	NoComplaint = "All charges are verified. No complaint is necessary."
	// MissingPatient stands in for an unreadable patient name.
	MissingPatient = "Patient Name Not Available"
)

// ErrEmptyDraft is returned when the model produced no text.
var ErrEmptyDraft = errors.New("model returned an empty complaint")

// Request carries what the letter is about.
type Request struct {
	HospitalName     string
	PatientName      string
	City             string
	BillDate         string
	TotalAmount      float64
	PotentialSavings float64
	Items            []model.LineItem // flagged items only
	Transcript       string           // patient's own words, optional
}

// RequestFromAudit builds a request from the flagged subset of result.
func RequestFromAudit(result *model.AuditResult, transcript string) Request {
	return Request{
		HospitalName:     result.HospitalName,
		PatientName:      result.PatientName,
		City:             result.City,
		BillDate:         result.BillDate,
		TotalAmount:      result.TotalAmount,
		PotentialSavings: result.PotentialSavings,
		Items:            result.FlaggedItems(),
		Transcript:       strings.TrimSpace(transcript),
	}
}

// Patient returns the name to sign the letter with.
func (r Request) Patient() string {
	if name := strings.TrimSpace(r.PatientName); name != "" {
		return name
	}
	return MissingPatient
}

// Drafter writes complaint letters.
type Drafter interface {
	Draft(ctx context.Context, req Request) (string, error)
}

// Chatter is the subset of llm.Client used here.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []openai.ChatCompletionMessage, temperature float32) (string, error)
}

// LLMDrafter drafts letters with a chat model.
type LLMDrafter struct {
	chat  Chatter
	model string
}

var _ Drafter = (*LLMDrafter)(nil)

func NewLLMDrafter(chat Chatter, model string) *LLMDrafter {
	return &LLMDrafter{chat: chat, model: model}
}

// Draft returns NoComplaint without calling the model when nothing is flagged.
func (d *LLMDrafter) Draft(ctx context.Context, req Request) (string, error) {
	if len(req.Items) == 0 {
		return NoComplaint, nil
	}
	text, err := d.chat.Chat(ctx, d.model, llm.TextMessages("", Prompt(req)), 0)
	if err != nil {
		return "", fmt.Errorf("draft complaint: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyDraft
	}
	return Finalize(text, req.Patient()), nil
}

// ItemLines renders one "- Service: Charged Rs X, Fair Price Rs Y" line per item.
func ItemLines(items []model.LineItem) string {
	if len(items) == 0 {
		return "No overpriced items found. All charges are correctly priced."
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("- %s: Charged Rs %s, Fair Price Rs %s",
			it.Service, normalize.Amount(it.Price), normalize.Amount(it.StandardPrice))
	}
	return strings.Join(lines, "\n")
}

var (
	placeholderRe = regexp.MustCompile(`(?i)\{patient_name\}|\[patient'?s? name\]`)
	fromLineRe    = regexp.MustCompile(`(?i)^From:\s*[^\n]+`)
	signoffRe     = regexp.MustCompile(`(?i)Yours\s+faithfully,?\s*\n\s*[^\n]+`)
)

// Finalize makes the letter open with "From: <patient>" and close with
// "Yours faithfully,\n<patient>", filling any leftover name placeholders.
func Finalize(text, patient string) string {
	if strings.Contains(text, "All charges are verified") {
		return text
	}
	text = placeholderRe.ReplaceAllLiteralString(text, patient)

	if loc := fromLineRe.FindStringIndex(text); loc != nil && strings.HasPrefix(text[loc[1]:], "\n") {
		text = "From: " + patient + text[loc[1]:]
	} else {
		text = "From: " + patient + "\n\n" + text
	}

	if loc := signoffRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]] + "Yours faithfully,\n" + patient + text[loc[1]:]
	} else {
		text += "\n\nYours faithfully,\n" + patient
	}
	return text
}
