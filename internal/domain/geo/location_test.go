package geo_test

import (
	"testing"

	"delivery-realtime/internal/domain/geo"

	"github.com/stretchr/testify/assert"
)

func TestNewLocationRanges(t *testing.T) {
	_, err := geo.NewLocation(1.0, 2.0)
	assert.NoError(t, err)

	_, err = geo.NewLocation(91, 0)
	assert.ErrorIs(t, err, geo.ErrInvalidLatitude)

	_, err = geo.NewLocation(0, -180.5)
	assert.ErrorIs(t, err, geo.ErrInvalidLongitude)
}

func TestEntityTypeKinds(t *testing.T) {
	assert.True(t, geo.EntityTypeDriver.IsDriver())
	assert.False(t, geo.EntityTypeUser.IsDriver())
	assert.Equal(t, "user", geo.EntityTypeUser.String())
}
