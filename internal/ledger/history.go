package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"salun/internal/domain"
)

// KindForAction maps a backend history action to a transaction kind.
func KindForAction(action string) Kind {
	switch action {
	case domain.ActionScan:
		return KindScan
	case domain.ActionPointAdd:
		return KindManualAdd
	case domain.ActionPointRedeem:
		return KindManualRedeem
	case domain.ActionRedemption, domain.ActionCashReward:
		return KindRedemption
	}
	return Kind(action)
}

// FromHistory converts raw history records as delivered by the backend into
// transactions. Records are never rejected; fields that cannot be read are
// recorded as an Issue on the transaction.
func FromHistory(records []map[string]any) []Transaction {
	out := make([]Transaction, 0, len(records))
	for _, r := range records {
		out = append(out, FromRecord(r))
	}
	return out
}

// FromRecord converts one history record. The amount is taken from
// details.amount, then details.points, then points.
func FromRecord(r map[string]any) Transaction {
	tx := Transaction{
		ID:            idString(r["id"]),
		SubjectUserID: idString(r["userId"]),
	}
	if tx.ID == "" {
		tx.ID = idString(r["_id"])
	}

	action, _ := r["action"].(string)
	tx.Kind = KindForAction(action)
	if !tx.Kind.Known() {
		tx.Issue = IssueKind
	}

	raw, found := amountField(r)
	if found {
		amount, ok := parseAmount(raw)
		if !ok {
			tx.Issue = IssueAmount
		} else {
			tx.Amount = amount
		}
	}

	at, ok := parseTime(r["createdAt"])
	if !ok && tx.Issue == IssueNone {
		tx.Issue = IssueTimestamp
	}
	tx.OccurredAt = at
	return tx
}

func amountField(r map[string]any) (any, bool) {
	if details, ok := r["details"].(map[string]any); ok {
		if v, ok := details["amount"]; ok && v != nil {
			return v, true
		}
		if v, ok := details["points"]; ok && v != nil {
			return v, true
		}
	}
	if v, ok := r["points"]; ok && v != nil {
		return v, true
	}
	return nil, false
}

func parseAmount(v any) (int64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Abs(math.Round(f))
	if f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z07:00", "2006-01-02 15:04:05"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
	}
	return time.Time{}, false
}

// idString renders an identifier field. Populated references such as
// {"_id": "..."} resolve to their id.
func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case map[string]any:
		if s := idString(id["id"]); s != "" {
			return s
		}
		return idString(id["_id"])
	}
	return fmt.Sprint(v)
}
