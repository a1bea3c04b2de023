package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func validListing() Listing {
	return Listing{
		Name:        "Handmade basket",
		ImageRef:    "https://img.example/basket.png",
		Description: "Woven from local reeds",
		Location:    "Nairobi",
		Price:       100,
	}
}

func TestListing_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(l *Listing)
		field  string
	}{
		{name: "valid", mutate: func(l *Listing) {}},
		{name: "empty name", mutate: func(l *Listing) { l.Name = "" }, field: "name"},
		{name: "name too long", mutate: func(l *Listing) { l.Name = strings.Repeat("a", 101) }, field: "name"},
		{name: "name at limit", mutate: func(l *Listing) { l.Name = strings.Repeat("a", 100) }},
		{name: "multibyte name at limit", mutate: func(l *Listing) { l.Name = strings.Repeat("é", 100) }},
		{name: "empty image", mutate: func(l *Listing) { l.ImageRef = "" }, field: "image_ref"},
		{name: "empty description", mutate: func(l *Listing) { l.Description = "" }, field: "description"},
		{name: "empty location", mutate: func(l *Listing) { l.Location = "" }, field: "location"},
		{name: "zero price", mutate: func(l *Listing) { l.Price = 0 }, field: "price"},
		{name: "negative price", mutate: func(l *Listing) { l.Price = -1 }, field: "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := validListing()
			tt.mutate(&l)

			err := l.Validate()
			if tt.field == "" {
				require.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tt.field, verr.Field)
			require.True(t, IsValidation(err))
			require.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestProduct_IsOwnedBy(t *testing.T) {
	p := &Product{Owner: "alice"}
	require.True(t, p.IsOwnedBy("alice"))
	require.False(t, p.IsOwnedBy("bob"))
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError(7)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, "product not found: index 7", err.Error())
}

func TestAsServiceError(t *testing.T) {
	svc := &ServiceError{Message: "ERC20: insufficient allowance"}

	got, ok := AsServiceError(svc)
	require.True(t, ok)
	require.Same(t, svc, got)

	_, ok = AsServiceError(&ServiceError{})
	require.False(t, ok)

	_, ok = AsServiceError(errors.New("connection reset"))
	require.False(t, ok)
}
