package twitch

// Stream is one element of the Helix /streams data array.
type Stream struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	UserLogin    string `json:"user_login"`
	UserName     string `json:"user_name"`
	GameID       string `json:"game_id"`
	GameName     string `json:"game_name"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	ViewerCount  int    `json:"viewer_count"`
	StartedAt    string `json:"started_at"`
	Language     string `json:"language"`
	ThumbnailURL string `json:"thumbnail_url"`
	IsMature     bool   `json:"is_mature"`
}

// StreamsResponse wraps the /streams payload. An empty Data slice means
// the queried channel is offline.
type StreamsResponse struct {
	Data []Stream `json:"data"`
}

// User is one element of the Helix /users data array.
type User struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	Type            string `json:"type"`
	BroadcasterType string `json:"broadcaster_type"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profile_image_url"`
	ViewCount       int    `json:"view_count"`
	CreatedAt       string `json:"created_at"`
}

type UsersResponse struct {
	Data []User `json:"data"`
}

// Follow describes a follow relation between two users.
type Follow struct {
	FromID     string `json:"from_id"`
	FromLogin  string `json:"from_login"`
	FromName   string `json:"from_name"`
	ToID       string `json:"to_id"`
	ToLogin    string `json:"to_login"`
	ToName     string `json:"to_name"`
	FollowedAt string `json:"followed_at"`
}

type FollowsResponse struct {
	Total      int      `json:"total"`
	Data       []Follow `json:"data"`
	Pagination Cursor   `json:"pagination"`
}

// Game is one element of the Helix /games/top data array.
type Game struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoxArtURL string `json:"box_art_url"`
}

type GamesResponse struct {
	Data       []Game `json:"data"`
	Pagination Cursor `json:"pagination"`
}

// Block is one element of the Helix /users/blocks data array.
type Block struct {
	UserID      string `json:"user_id"`
	UserLogin   string `json:"user_login"`
	DisplayName string `json:"display_name"`
}

type BlocksResponse struct {
	Data       []Block `json:"data"`
	Pagination Cursor  `json:"pagination"`
}

// Clip is one element of the Helix /clips data array.
type Clip struct {
	ID      string `json:"id"`
	EditURL string `json:"edit_url"`
}

type ClipsResponse struct {
	Data []Clip `json:"data"`
}

// Cursor is the Helix pagination envelope.
type Cursor struct {
	Cursor string `json:"cursor"`
}
