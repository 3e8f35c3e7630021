package model

// SubmitResponse is the JSON body answered by the contact endpoint and the
// mail relay.
type SubmitResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// RelayPayload is the JSON body posted to the mail relay's /internal/send.
type RelayPayload struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ResendEmail is the JSON body of a Resend send-email call.
type ResendEmail struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	ReplyTo string `json:"reply_to,omitempty"`
}
