// Package intake turns the loosely shaped JSON returned by bill extraction
// into a canonical model.Bill. All shape tolerance lives here.
package intake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gyeh/billaudit/internal/model"
	"github.com/gyeh/billaudit/internal/normalize"
)

// Accepted spellings, first match wins. "suspicious" is what audit output
// writes for the upstream flag, so a re-audited result keeps it instead of
// its computed "flagged".
var (
	itemsKeys   = []string{"line_items", "items"}
	serviceKeys = []string{"service", "name"}
	priceKeys   = []string{"price", "charged_price", "charged"}
	flagKeys    = []string{"suspicious", "flagged", "is_overpriced"}
)

// MaxQuantity bounds the units billed on one line.
const MaxQuantity = 1_000_000

// Parse reads a bill object out of raw. Markdown code fences and prose around
// the outermost {...} are ignored.
func Parse(raw []byte) (model.Bill, error) {
	body := extractObject(raw)
	if body == nil {
		return model.Bill{}, &model.InputError{Field: "body", Reason: "no JSON object found"}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return model.Bill{}, &model.InputError{Field: "body", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	bill := model.Bill{
		HospitalName: str(doc["hospital_name"]),
		PatientName:  str(doc["patient_name"]),
		BillDate:     normalize.BillDate(str(doc["bill_date"])),
		City:         str(doc["city"]),
		Tier:         str(doc["tier"]),
	}
	if v, ok := number(doc["total_amount"]); ok {
		bill.TotalAmount = &v
	}

	rawItems, key := first(doc, itemsKeys)
	if rawItems == nil {
		return model.Bill{}, &model.InputError{Field: "line_items", Reason: "missing"}
	}
	list, ok := rawItems.([]any)
	if !ok {
		return model.Bill{}, &model.InputError{Field: key, Reason: "not a list"}
	}

	bill.LineItems = make([]model.LineItem, 0, len(list))
	for i, v := range list {
		obj, ok := v.(map[string]any)
		if !ok {
			return model.Bill{}, &model.InputError{Field: fmt.Sprintf("%s[%d]", key, i), Reason: "not an object"}
		}
		item, err := lineItem(obj)
		if err != nil {
			err.Field = fmt.Sprintf("%s[%d].%s", key, i, err.Field)
			return model.Bill{}, err
		}
		bill.LineItems = append(bill.LineItems, item)
	}
	return bill, nil
}

func lineItem(obj map[string]any) (model.LineItem, *model.InputError) {
	sv, _ := first(obj, serviceKeys)
	service := str(sv)
	if service == "" {
		return model.LineItem{}, &model.InputError{Field: "service", Reason: "missing service name"}
	}

	item := model.LineItem{Service: service, Quantity: 1}
	if pv, _ := first(obj, priceKeys); pv != nil {
		p, ok := number(pv)
		if !ok {
			return model.LineItem{}, &model.InputError{Field: "price", Reason: fmt.Sprintf("not a number: %v", pv)}
		}
		item.Price = p
	}
	if q, ok := number(obj["quantity"]); ok && q >= 1 {
		if q > MaxQuantity {
			return model.LineItem{}, &model.InputError{Field: "quantity", Reason: fmt.Sprintf("out of range: %v", obj["quantity"])}
		}
		item.Quantity = int(q)
	}
	if fv, _ := first(obj, flagKeys); fv != nil {
		item.Suspicious = boolean(fv)
	}
	return item, nil
}

// extractObject strips code fences and returns the outermost {...} span.
func extractObject(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil
	}
	return []byte(s[start : end+1])
}

func first(m map[string]any, keys []string) (any, string) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, k
		}
	}
	return nil, keys[0]
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// number accepts JSON numbers and printed amounts like "₹1,200".
func number(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return normalize.ParseAmount(t)
	default:
		return 0, false
	}
}

func boolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case json.Number:
		f, _ := t.Float64()
		return f != 0
	default:
		return false
	}
}
