package metadomain

type BatchRequest struct {
	Method      string `json:"method"`
	RelativeURL string `json:"relative_url"`
}

type BatchHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BatchResponseItem é uma sub-resposta; Body vem como string JSON e é decodificado à parte.
type BatchResponseItem struct {
	Code    int           `json:"code"`
	Headers []BatchHeader `json:"headers"`
	Body    string        `json:"body"`
}

func (b *BatchResponseItem) Header(name string) string {
	for _, h := range b.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}
