package complaint

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/billaudit/internal/model"
)

type fakeChat struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (f *fakeChat) Chat(_ context.Context, _ string, msgs []openai.ChatCompletionMessage, _ float32) (string, error) {
	f.calls++
	f.prompt = msgs[len(msgs)-1].Content
	return f.reply, f.err
}

func auditResult() *model.AuditResult {
	return &model.AuditResult{
		HospitalName:     "Fortis",
		PatientName:      "Anita Rao",
		City:             "Bengaluru",
		BillDate:         "2025-02-10",
		TotalAmount:      21500,
		PotentialSavings: 5000,
		LineItems: []model.LineItem{
			{Service: "ICU Charges", Price: 13000, StandardPrice: 8000, Flagged: true, Savings: 5000},
			{Service: "Consultation", Price: 1500, StandardPrice: 1500},
			{Service: "Oxygen", Price: 7000, StandardPrice: 1500, Flagged: true, Savings: 0},
		},
	}
}

func TestDraft_NoFlaggedItems(t *testing.T) {
	chat := &fakeChat{}
	res := &model.AuditResult{LineItems: []model.LineItem{{Service: "x", Price: 1}}}

	text, err := NewLLMDrafter(chat, "m").Draft(context.Background(), RequestFromAudit(res, ""))
	require.NoError(t, err)
	assert.Equal(t, NoComplaint, text)
	assert.Zero(t, chat.calls, "no model call when nothing is flagged")
}

func TestDraft_Prompt(t *testing.T) {
	chat := &fakeChat{reply: "From: Anita Rao\nTo the Administrator,\n...\nYours faithfully,\nAnita Rao"}
	req := RequestFromAudit(auditResult(), " my father was in ICU for one day ")

	text, err := NewLLMDrafter(chat, "m").Draft(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, chat.reply, text)

	assert.Contains(t, chat.prompt, "- ICU Charges: Charged Rs 13000, Fair Price Rs 8000")
	assert.Contains(t, chat.prompt, "- Oxygen: Charged Rs 7000, Fair Price Rs 1500")
	assert.NotContains(t, chat.prompt, "- Consultation")
	assert.Contains(t, chat.prompt, "my father was in ICU for one day")
	assert.Contains(t, chat.prompt, "Hospital: Fortis")
	assert.Contains(t, chat.prompt, "Potential Savings: Rs 5000")
	assert.NotContains(t, chat.prompt, "{patient_name}")
}

func TestDraft_Errors(t *testing.T) {
	req := RequestFromAudit(auditResult(), "")

	_, err := NewLLMDrafter(&fakeChat{err: errors.New("boom")}, "m").Draft(context.Background(), req)
	assert.Error(t, err)

	_, err = NewLLMDrafter(&fakeChat{reply: "  \n"}, "m").Draft(context.Background(), req)
	assert.ErrorIs(t, err, ErrEmptyDraft)
}

func TestFinalize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		patient string
		want    string
	}{
		{
			name:    "adds from and signoff",
			in:      "To the Administrator,\nI was overcharged.",
			patient: "Anita Rao",
			want:    "From: Anita Rao\n\nTo the Administrator,\nI was overcharged.\n\nYours faithfully,\nAnita Rao",
		},
		{
			name:    "rewrites wrong names",
			in:      "From: [Patient's Name]\nBody\nYours faithfully,\nJohn Doe",
			patient: "Anita Rao",
			want:    "From: Anita Rao\nBody\nYours faithfully,\nAnita Rao",
		},
		{
			name:    "placeholder and lowercase signoff",
			in:      "from: someone\nDear Sir, {patient_name} requests a refund.\nyours faithfully\n  X",
			patient: MissingPatient,
			want:    "From: Patient Name Not Available\nDear Sir, Patient Name Not Available requests a refund.\nYours faithfully,\nPatient Name Not Available",
		},
		{
			name:    "verified message untouched",
			in:      NoComplaint,
			patient: "Anita Rao",
			want:    NoComplaint,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Finalize(tt.in, tt.patient))
		})
	}
}

func TestRequest_Patient(t *testing.T) {
	assert.Equal(t, MissingPatient, Request{PatientName: "  "}.Patient())
	assert.Equal(t, "A B", Request{PatientName: " A B "}.Patient())
}

func TestRenderPDF(t *testing.T) {
	letter := LetterFromAudit("From: Anita Rao\n\nI was charged ₹13,000 for one ICU day.\n\nYours faithfully,\nAnita Rao",
		auditResult(), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, letter.Items, 2)

	var buf bytes.Buffer
	require.NoError(t, RenderPDF(&buf, letter))
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF"))
	assert.Greater(t, buf.Len(), 500)
}

func TestRenderPDF_NoItems(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPDF(&buf, Letter{Text: NoComplaint}))
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF"))
}
