package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docledger/docledger/internal/core/domain"
)

func sampleGroups() domain.ContentGroups {
	return domain.ContentGroups{
		{
			Label: domain.GroupDetails,
			Contents: []domain.Content{
				domain.StringContent("account_name", "Cash"),
				domain.IntContent("code", 1000),
			},
		},
		domain.SystemGroup("Cash", domain.TypeAccount),
	}
}

func TestHashContents_Deterministic(t *testing.T) {
	h1 := domain.HashContents(sampleGroups())
	h2 := domain.HashContents(sampleGroups())

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestHashContents_SensitiveToContent(t *testing.T) {
	base := domain.HashContents(sampleGroups())

	edited := sampleGroups()
	edited[0].Contents[0].StringValue = "Bank"
	assert.NotEqual(t, base, domain.HashContents(edited))
}

func TestHashContents_SensitiveToOrder(t *testing.T) {
	groups := sampleGroups()
	base := domain.HashContents(groups)

	swapped := domain.ContentGroups{groups[1], groups[0]}
	assert.NotEqual(t, base, domain.HashContents(swapped))
}

func TestNewDocument(t *testing.T) {
	createdAt := time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))

	doc := domain.NewDocument("issuer", createdAt, sampleGroups())
	assert.Equal(t, domain.HashContents(sampleGroups()), doc.Hash)
	assert.Equal(t, "issuer", doc.Creator)
	assert.Equal(t, time.UTC, doc.CreatedAt.Location())
	assert.True(t, doc.CreatedAt.Equal(createdAt))
}

func TestNodeType(t *testing.T) {
	doc := domain.NewDocument("issuer", time.Now(), sampleGroups())
	assert.Equal(t, domain.TypeAccount, domain.NodeType(doc))

	bare := domain.NewDocument("issuer", time.Now(), domain.ContentGroups{
		{Label: domain.GroupDetails},
	})
	assert.Equal(t, "", domain.NodeType(bare))
}

func TestTimeContentNormalizesToUTC(t *testing.T) {
	local := time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))

	c := domain.TimeContent("date", local)
	require.Equal(t, domain.ContentTime, c.Type)
	assert.Equal(t, time.UTC, c.TimeValue.Location())
	assert.True(t, c.TimeValue.Equal(local))
}
