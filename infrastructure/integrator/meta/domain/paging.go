package metadomain

type Cursors struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

type Paging struct {
	Cursors  Cursors `json:"cursors"`
	Next     string  `json:"next"`
	Previous string  `json:"previous"`
}

// Page é o envelope de qualquer coleção paginada da Graph API.
// Algumas respostas chegam com status 200 e o erro no corpo, por isso Error.
type Page[T any] struct {
	Data   []T           `json:"data"`
	Paging Paging        `json:"paging"`
	Error  *ErrorDetails `json:"error,omitempty"`
}
