package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneDetachesOptionalFields(t *testing.T) {
	orig := Mineral{ID: 1, Name: "Quartz", Color: StringPtr("Clear"), Rarity: StringPtr("Common")}
	cp := orig.Clone()
	*cp.Color = "Smoky"
	*cp.Rarity = "Rare"
	assert.Equal(t, "Clear", *orig.Color)
	assert.Equal(t, "Common", *orig.Rarity)

	bare := Mineral{ID: 2}.Clone()
	assert.Nil(t, bare.Color)
	assert.Nil(t, bare.Rarity)
}

func TestHasColorAndRarityRequireNonEmpty(t *testing.T) {
	assert.False(t, Mineral{}.HasColor())
	assert.False(t, Mineral{Color: StringPtr("")}.HasColor())
	assert.True(t, Mineral{Color: StringPtr("Gold")}.HasColor())
	assert.False(t, Mineral{Rarity: StringPtr("")}.HasRarity())
	assert.True(t, Mineral{Rarity: StringPtr("Rare")}.HasRarity())
}

func TestCloneMineralsPreservesOrder(t *testing.T) {
	seed := SeedMinerals()
	cp := CloneMinerals(seed)
	require.Len(t, cp, 2)
	assert.Equal(t, seed, cp)
	*cp[0].Color = "Pink"
	assert.Equal(t, "Colorless", *seed[0].Color)
}

func TestMineralJSONKeepsNullOptionals(t *testing.T) {
	raw, err := json.Marshal(Mineral{ID: 3, Name: "Talc", ChemicalComposition: "Mg3Si4O10(OH)2", Hardness: 1, Origin: "Austria"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"name":"Talc","chemical_composition":"Mg3Si4O10(OH)2","hardness":1,"origin":"Austria","color":null,"rarity":null}`, string(raw))
}

func TestErrorStatusCodes(t *testing.T) {
	cases := []struct {
		err    StatusCodeError
		status int
	}{
		{ErrMineralNotFound(4), http.StatusNotFound},
		{&NotFoundError{Detail: MsgNoMineralsFound}, http.StatusNotFound},
		{&DuplicateIDError{ID: 1}, http.StatusBadRequest},
		{&ValidationError{Location: "body", Field: "name", Message: "field required"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.StatusCode(), tc.err.Error())
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "mineral 4 not found", ErrMineralNotFound(4).Error())
	assert.Equal(t, MsgMineralNotFound, ErrMineralNotFound(4).Detail)
	assert.Equal(t, MsgNoMineralsAvailable, (&NotFoundError{Detail: MsgNoMineralsAvailable}).Error())
	assert.Equal(t, MsgDuplicateID, (&DuplicateIDError{ID: 9}).Detail())
	assert.Equal(t, `validation failed for field "name": field required`, (&ValidationError{Field: "name", Message: "field required"}).Error())
	assert.Equal(t, "invalid JSON body", (&ValidationError{Message: "invalid JSON body"}).Error())
}

func TestErrorsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("get: %w", ErrMineralNotFound(7))
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	require.NotNil(t, nf.ID)
	assert.Equal(t, 7, *nf.ID)
}
