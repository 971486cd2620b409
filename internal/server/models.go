package server

import "time"

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// MeResponse returns the current authenticated user id.
type MeResponse struct {
	UserID string `json:"user_id"`
}

// QueryRequest is one chat turn. An empty session id starts a new session;
// an empty model selects the default.
type QueryRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
}

// QueryResponse carries the answer plus the session id to continue with.
type QueryResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
}

// UploadResponse confirms an ingested document.
type UploadResponse struct {
	FileID   int64  `json:"file_id"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// IngestURLRequest asks the server to fetch and ingest a web page.
type IngestURLRequest struct {
	URL string `json:"url"`
}

// DocumentResponse is one row of the document listing.
type DocumentResponse struct {
	ID              int64     `json:"id"`
	Filename        string    `json:"filename"`
	UploadTimestamp time.Time `json:"upload_timestamp"`
}
