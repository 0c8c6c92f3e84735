package server

// HTTPError is the JSON error envelope returned by the API.
type HTTPError struct {
	Error string `json:"error"`
}

type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type PaperRequest struct {
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	Year     int    `json:"year"`
	Content  string `json:"content"`
	FilePath string `json:"file_path"`
}

type MemoRequest struct {
	Content    string `json:"content"`
	PageNumber int    `json:"page_number"`
	PageRange  string `json:"page_range"`
}

type ChapterRequest struct {
	ChapterNumber int    `json:"chapter_number"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	PageStart     int    `json:"page_start"`
	PageEnd       int    `json:"page_end"`
}

type FigureRequest struct {
	FigureNumber int    `json:"figure_number"`
	Caption      string `json:"caption"`
	PageNumber   int    `json:"page_number"`
}

type TagRequest struct {
	Tag string `json:"tag"`
}

// RelatedMemoResponse is one entry of the related-memos list. The excerpt
// is a bounded cut of the related memo's content, not a search snippet.
type RelatedMemoResponse struct {
	RelatedMemoID  string `json:"related_memo_id"`
	PaperID        string `json:"paper_id"`
	PaperTitle     string `json:"paper_title"`
	ContentExcerpt string `json:"content_excerpt"`
	CommonTerms    string `json:"common_terms"`
	Score          int    `json:"score"`
}

type RebuildResponse struct {
	MemoID string `json:"memo_id,omitempty"`
	Edges  int    `json:"edges"`
}
