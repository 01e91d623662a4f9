package ussd

// Transport carries the gateway-supplied identifiers. They are passed through
// as received; validating them is the caller's job.
type Transport struct {
	PhoneNumber string
	SessionID   string
	ServiceCode string
	Text        string
}

// Record is the packaged request handed to menu handlers.
type Record struct {
	PhoneNumber                     string   `json:"phone_number"`
	SessionID                       string   `json:"session_id"`
	ServiceCode                     string   `json:"service_code"`
	Text                            string   `json:"text"`
	ValuesTrimmed                   []string `json:"a_values_trimmed"`
	ValuesNonExtraneous             []string `json:"a_values_non_extraneous"`
	ValuesNonExtraneousWithLoadMore []string `json:"a_values_non_extraneous_with_load_more_key"`
	LatestResponse                  *string  `json:"latest_response"`
	FirstResponse                   *string  `json:"first_response"`
}

func Package(t Transport, r *Reduction) *Record {
	rec := &Record{
		PhoneNumber:                     t.PhoneNumber,
		SessionID:                       t.SessionID,
		ServiceCode:                     t.ServiceCode,
		Text:                            t.Text,
		ValuesTrimmed:                   r.Trimmed,
		ValuesNonExtraneous:             r.NonExtraneous,
		ValuesNonExtraneousWithLoadMore: r.NonExtraneousWithLoadMore,
	}
	if v, ok := r.LatestResponse(); ok {
		rec.LatestResponse = &v
	}
	if v, ok := r.FirstResponse(); ok {
		rec.FirstResponse = &v
	}
	return rec
}

// Latest returns the latest raw value, or "" when the history is empty.
func (r *Record) Latest() string {
	if r.LatestResponse == nil {
		return ""
	}
	return *r.LatestResponse
}
