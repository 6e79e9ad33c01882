package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/noah-isme/ayudas-panel/internal/dto"
)

func runListFlags(t *testing.T, args ...string) (dto.RecordQuery, error) {
	t.Helper()
	var got dto.RecordQuery
	cmd := &cli.Command{
		Name:  "list",
		Flags: listFlags(),
		Action: func(_ context.Context, c *cli.Command) error {
			got = recordQuery(c)
			return nil
		},
	}
	err := cmd.Run(context.Background(), append([]string{"list"}, args...))
	return got, err
}

func TestRecordQueryDefaults(t *testing.T) {
	q, err := runListFlags(t)
	require.NoError(t, err)
	assert.Equal(t, dto.RecordQuery{SortBy: "codigo", SortDir: "desc", Page: 1, PageSize: 10}, q)
}

func TestRecordQueryParsesFlags(t *testing.T) {
	q, err := runListFlags(t, "--codigo", "12", "--q", "rojas", "--page", "3", "--page-size", "25", "--dir", "asc")
	require.NoError(t, err)
	assert.Equal(t, "12", q.Code)
	assert.Equal(t, "rojas", q.Search)
	assert.Equal(t, "asc", q.SortDir)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 25, q.PageSize)
}

func TestRecordQueryRejectsNonNumericPage(t *testing.T) {
	_, err := runListFlags(t, "--page", "dos")
	assert.Error(t, err)
}
