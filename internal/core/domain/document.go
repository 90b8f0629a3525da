package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// ContentType discriminates the closed set of value types a content field may hold.
type ContentType string

const (
	ContentString ContentType = "string"
	ContentInt    ContentType = "int64"
	ContentAsset  ContentType = "asset"
	ContentHash   ContentType = "checksum256"
	ContentTime   ContentType = "time_point"
)

// Content is one labeled, typed field inside a content group. Exactly one of
// the value fields is meaningful, selected by Type.
type Content struct {
	Label       string      `json:"label"`
	Type        ContentType `json:"type"`
	StringValue string      `json:"stringValue,omitempty"`
	IntValue    int64       `json:"intValue,omitempty"`
	AssetValue  Asset       `json:"assetValue,omitempty"`
	HashValue   string      `json:"hashValue,omitempty"`
	TimeValue   time.Time   `json:"timeValue,omitempty"`
}

func StringContent(label, value string) Content {
	return Content{Label: label, Type: ContentString, StringValue: value}
}

func IntContent(label string, value int64) Content {
	return Content{Label: label, Type: ContentInt, IntValue: value}
}

func AssetContent(label string, value Asset) Content {
	return Content{Label: label, Type: ContentAsset, AssetValue: value}
}

func HashContent(label, value string) Content {
	return Content{Label: label, Type: ContentHash, HashValue: value}
}

func TimeContent(label string, value time.Time) Content {
	return Content{Label: label, Type: ContentTime, TimeValue: value.UTC()}
}

// ContentGroup is an ordered list of fields sharing a group label.
type ContentGroup struct {
	Label    string    `json:"label"`
	Contents []Content `json:"contents"`
}

// Get returns the first field with the given label.
func (g ContentGroup) Get(label string) (Content, bool) {
	for _, c := range g.Contents {
		if c.Label == label {
			return c, true
		}
	}
	return Content{}, false
}

// ContentGroups is the full payload of a document.
type ContentGroups []ContentGroup

// Group returns the first group with the given label.
func (gs ContentGroups) Group(label string) (ContentGroup, bool) {
	for _, g := range gs {
		if g.Label == label {
			return g, true
		}
	}
	return ContentGroup{}, false
}

// GetString fetches a required string field from the named group.
func (gs ContentGroups) GetString(group, label string) (string, error) {
	c, err := gs.get(group, label, ContentString)
	if err != nil {
		return "", err
	}
	return c.StringValue, nil
}

// GetInt fetches a required int64 field from the named group.
func (gs ContentGroups) GetInt(group, label string) (int64, error) {
	c, err := gs.get(group, label, ContentInt)
	if err != nil {
		return 0, err
	}
	return c.IntValue, nil
}

// GetAsset fetches a required asset field from the named group.
func (gs ContentGroups) GetAsset(group, label string) (Asset, error) {
	c, err := gs.get(group, label, ContentAsset)
	if err != nil {
		return Asset{}, err
	}
	return c.AssetValue, nil
}

// GetHash fetches a required hash-reference field from the named group.
func (gs ContentGroups) GetHash(group, label string) (string, error) {
	c, err := gs.get(group, label, ContentHash)
	if err != nil {
		return "", err
	}
	return c.HashValue, nil
}

// GetTime fetches a required timestamp field from the named group.
func (gs ContentGroups) GetTime(group, label string) (time.Time, error) {
	c, err := gs.get(group, label, ContentTime)
	if err != nil {
		return time.Time{}, err
	}
	return c.TimeValue, nil
}

func (gs ContentGroups) get(group, label string, want ContentType) (Content, error) {
	g, ok := gs.Group(group)
	if !ok {
		return Content{}, fmt.Errorf("missing %q group", group)
	}
	c, ok := g.Get(label)
	if !ok {
		return Content{}, fmt.Errorf("missing %q field in %q group", label, group)
	}
	if c.Type != want {
		return Content{}, fmt.Errorf("field %q in group %q has type %s, want %s", label, group, c.Type, want)
	}
	return c, nil
}

// HashContents computes the deterministic content hash of a payload: sha256
// over the canonical JSON encoding of the groups. Two documents with equal
// contents always share a hash; any edit yields a new one.
func HashContents(groups ContentGroups) string {
	canonical, err := json.Marshal(groups)
	if err != nil {
		// ContentGroups is a closed struct tree; marshalling cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Document is a content-addressed record in the graph store.
type Document struct {
	Hash      string        `json:"hash"`
	Creator   string        `json:"creator"`
	CreatedAt time.Time     `json:"createdAt"`
	Groups    ContentGroups `json:"groups"`
}

// NewDocument builds a document and stamps its content hash.
func NewDocument(creator string, createdAt time.Time, groups ContentGroups) Document {
	return Document{
		Hash:      HashContents(groups),
		Creator:   creator,
		CreatedAt: createdAt.UTC(),
		Groups:    groups,
	}
}

// Relation is one direction of a typed edge between two document hashes.
// Relations are only ever written as forward/reverse pairs through the
// repository's Link operation, so the two directions cannot diverge.
type Relation struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
}
