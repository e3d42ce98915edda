package model

import "encoding/json"

// Destination is one addressee group within a send request. Its subject and
// template data override the message-level values for its recipients.
type Destination struct {
	To           []string          `json:"to"`
	CC           []string          `json:"cc,omitempty"`
	BCC          []string          `json:"bcc,omitempty"`
	Subject      string            `json:"subject,omitempty"`
	TemplateData map[string]string `json:"templateData,omitempty"`
}

// Recipients returns the union of to, cc and bcc.
func (d Destination) Recipients() []string {
	out := make([]string, 0, len(d.To)+len(d.CC)+len(d.BCC))
	out = append(out, d.To...)
	out = append(out, d.CC...)
	out = append(out, d.BCC...)
	return out
}

// DestinationList accepts either a single destination object or an array of
// them on the wire.
type DestinationList []Destination

func (dl *DestinationList) UnmarshalJSON(data []byte) error {
	var many []Destination
	if err := json.Unmarshal(data, &many); err == nil {
		*dl = many
		return nil
	}
	var one Destination
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*dl = DestinationList{one}
	return nil
}

// Body carries the template bodies; at least one of text/html is required.
type Body struct {
	Text string `json:"text,omitempty"`
	HTML string `json:"html,omitempty"`
}

// Message is the global template applied to every destination that does not
// override it.
type Message struct {
	Subject string `json:"subject"`
	Body    Body   `json:"body"`
}

// SendRequest is the inbound send payload.
type SendRequest struct {
	Source       string            `json:"source"`
	Destination  DestinationList   `json:"destination"`
	Message      Message           `json:"message"`
	TemplateData map[string]string `json:"templateData,omitempty"`
}

// OutboundEmail is the fully rendered, analytics-injected email for one
// destination, ready to hand to the provider. Ephemeral.
type OutboundEmail struct {
	From       string
	To         []string
	CC         []string
	BCC        []string
	Subject    string
	Text       string
	HTML       string
	TrackingID string
}

// DestinationResult reports the outcome of one destination's dispatch.
type DestinationResult struct {
	To         []string `json:"to"`
	TrackingID string   `json:"tracking_id"`
	MessageID  string   `json:"message_id,omitempty"`
	Status     string   `json:"status"` // "sent" | "failed"
	Error      string   `json:"error,omitempty"`
}

// SendReport is the aggregate response for one send request. Individual
// failures are surfaced here, never silently dropped.
type SendReport struct {
	Accepted int                 `json:"accepted"`
	Failed   int                 `json:"failed"`
	Results  []DestinationResult `json:"results"`
}
