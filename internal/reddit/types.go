// Package reddit holds the listing wire format shared by the public JSON
// listing and the OAuth API, plus the listing page and TTL rules.
package reddit

import (
	"encoding/json"
	"errors"
)

// Listing is one page of a subreddit listing.
type Listing struct {
	Data struct {
		After    string  `json:"after"`
		Children []Child `json:"children"`
	} `json:"data"`
}

// Child wraps one post in a listing.
type Child struct {
	Kind string `json:"kind"`
	Data Post   `json:"data"`
}

// Post is a listing record. Preview and gallery structures are kept raw and
// decoded on demand so a malformed value only affects its own consumer.
type Post struct {
	ID                    string  `json:"id"`
	Title                 string  `json:"title"`
	Selftext              string  `json:"selftext"`
	URL                   string  `json:"url"`
	Permalink             string  `json:"permalink"`
	Author                string  `json:"author"`
	Subreddit             string  `json:"subreddit"`
	SubredditNamePrefixed string  `json:"subreddit_name_prefixed"`
	CreatedUTC            float64 `json:"created_utc"`
	Score                 int     `json:"score"`
	Over18                bool    `json:"over_18"`
	Spoiler               bool    `json:"spoiler"`
	IsSelf                bool    `json:"is_self"`
	IsGallery             bool    `json:"is_gallery"`
	IsVideo               bool    `json:"is_video"`

	Preview       json.RawMessage `json:"preview"`
	GalleryData   json.RawMessage `json:"gallery_data"`
	MediaMetadata json.RawMessage `json:"media_metadata"`
}

// Preview is the link-preview structure of a post.
type Preview struct {
	Images []PreviewImage `json:"images"`
}

type PreviewImage struct {
	Source      Resolution   `json:"source"`
	Resolutions []Resolution `json:"resolutions"`
}

type Resolution struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// GalleryData lists the media ids of a gallery post in display order.
type GalleryData struct {
	Items []GalleryItem `json:"items"`
}

type GalleryItem struct {
	MediaID string `json:"media_id"`
	Caption string `json:"caption"`
}

// MediaMetadata describes one gallery image: its previews (P) and source (S).
type MediaMetadata struct {
	Status string       `json:"status"`
	P      []MediaImage `json:"p"`
	S      *MediaImage  `json:"s"`
}

type MediaImage struct {
	X int    `json:"x"`
	Y int    `json:"y"`
	U string `json:"u"`
}

var errAbsent = errors.New("field absent")

// DecodePreview decodes the post's preview structure.
func (p *Post) DecodePreview() (*Preview, error) {
	var v Preview
	if err := decodeRaw(p.Preview, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// DecodeGallery decodes the gallery item list and media metadata map.
func (p *Post) DecodeGallery() (*GalleryData, map[string]MediaMetadata, error) {
	var data GalleryData
	if err := decodeRaw(p.GalleryData, &data); err != nil {
		return nil, nil, err
	}
	var meta map[string]MediaMetadata
	if err := decodeRaw(p.MediaMetadata, &meta); err != nil {
		return nil, nil, err
	}
	return &data, meta, nil
}

func decodeRaw(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errAbsent
	}
	return json.Unmarshal(raw, v)
}
