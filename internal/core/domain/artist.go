package domain

import (
	"strconv"
	"strings"
)

// ArtistProfile is the catalog identity and popularity metadata for one artist.
type ArtistProfile struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Followers  int      `json:"followers"`
	Popularity int      `json:"popularity"`
	Genres     []string `json:"genres"`
	ImageURL   string   `json:"image,omitempty"`
}

// HasImage reports whether the catalog returned an avatar for the artist.
func (a ArtistProfile) HasImage() bool {
	return a.ImageURL != ""
}

// GenreList joins the genres for display.
func (a ArtistProfile) GenreList() string {
	return strings.Join(a.Genres, ", ")
}

// FollowersDisplay formats the follower count with thousands separators.
func (a ArtistProfile) FollowersDisplay() string {
	return GroupThousands(a.Followers)
}

// GroupThousands renders n with comma separators, e.g. 1234567 -> "1,234,567".
func GroupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
