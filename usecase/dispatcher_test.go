package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/blogclient/domain"
)

func TestDispatcher(t *testing.T) {
	d := NewDispatcher()
	d.RegisterQuery("home", func(_ context.Context, p Params) (any, error) {
		return "page " + p["page"], nil
	})
	d.RegisterQuery("admin", func(context.Context, Params) (any, error) { return nil, nil })

	out, err := d.ExecuteQuery(context.Background(), "home", Params{"page": "2"})
	require.NoError(t, err)
	assert.Equal(t, "page 2", out)

	out, err = d.ExecuteQuery(context.Background(), "home", nil)
	require.NoError(t, err)
	assert.Equal(t, "page ", out)

	_, err = d.ExecuteQuery(context.Background(), "missing", nil)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	assert.Equal(t, []string{"admin", "home"}, d.Queries())
}
