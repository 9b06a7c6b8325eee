package models

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	UserInput    string `json:"user_input" validate:"required"`
	LanguageCode string `json:"language_code" validate:"required"`
}

// ChatResponse carries the reply in the caller's language
type ChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is returned for any non-2xx status
type ErrorResponse struct {
	Error string `json:"error"`
}

// Language is one entry of the supported languages listing
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// LanguagesResponse is the body of GET /supported_languages
type LanguagesResponse struct {
	Languages []Language `json:"languages"`
	Message   string     `json:"message"`
}

// StatsResponse aggregates recorded exchanges per predicted tag
type StatsResponse struct {
	Total int64            `json:"total"`
	Tags  map[string]int64 `json:"tags"`
}

type ReadyResponse struct {
	Status string `json:"status"`
}
