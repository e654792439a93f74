package events

const (
	KindAssistantResponse Kind = "assistant_response.text"
	KindResponseHTML      Kind = "assistant_response.html"
)

type AssistantResponse struct {
	Base
	Text string
}

func NewAssistantResponse(text string) AssistantResponse {
	return AssistantResponse{Base: NewBase(KindAssistantResponse), Text: text}
}

// ResponseHTML carries HTML screen data exactly as the session reported it.
type ResponseHTML struct {
	Base
	HTML string
}

func NewResponseHTML(html string) ResponseHTML {
	return ResponseHTML{Base: NewBase(KindResponseHTML), HTML: html}
}
