package complaint

import (
	"strings"

	"github.com/gyeh/billaudit/internal/normalize"
)

const promptTemplate = `You are a legal medical complaint writer for Indian patients.

TASK:
- Generate a FORMAL LEGAL MEDICAL COMPLAINT in plain text ONLY. No markdown, no emojis, no JSON, no code blocks.

CONDITIONS:
1. If ALL billed items are correctly priced (no overpriced items), respond with exactly:
   "All charges are verified. No complaint is necessary."
2. If ANY item is overpriced or flagged, generate a complaint.

PATIENT NAME:
{patient_name}

PATIENT VOICE INPUT (optional):
{spoken_text}

AUDIT RESULTS:
Hospital: {hospital_name}
City: {city}
Bill Date: {bill_date}
Total Amount: Rs {total_amount}
Potential Savings: Rs {total_savings}

Overpriced Items:
{overpriced_items}

REQUIREMENTS IF COMPLAINT IS NEEDED:
- Use a polite but firm legal tone.
- Address: Hospital Administration / District Consumer Forum.
- Start with: "From: {patient_name}"
- Mention OVERCHARGING explicitly.
- Include PATIENT GRIEVANCE.
- Request REFUND / INVESTIGATION.
- List specific overpriced items.
- Include PATIENT VOICE input if provided.
- End with: "Yours faithfully,\n{patient_name}"

OUTPUT RULE:
- Only plain text.
- NEVER use placeholders like [Patient's Name] or Patient Name. Always use the exact patient name provided.`

// Prompt fills the drafting prompt for req.
func Prompt(req Request) string {
	return strings.NewReplacer(
		"{patient_name}", req.Patient(),
		"{spoken_text}", orDefault(req.Transcript, "No voice input provided"),
		"{hospital_name}", orDefault(req.HospitalName, "Not specified"),
		"{city}", orDefault(req.City, "Not specified"),
		"{bill_date}", orDefault(req.BillDate, "Not specified"),
		"{total_amount}", normalize.Amount(req.TotalAmount).String(),
		"{total_savings}", normalize.Amount(req.PotentialSavings).String(),
		"{overpriced_items}", ItemLines(req.Items),
	).Replace(promptTemplate)
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
