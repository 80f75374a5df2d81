//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarifbridge/tarif-engine/pkg/testhelpers"
)

// legacyCodeTestContext holds test dependencies for legacy code repository tests.
type legacyCodeTestContext struct {
	t        *testing.T
	engineDB *testhelpers.EngineDB
	repo     LegacyCodeRepository

	firstID  uuid.UUID
	secondID uuid.UUID

	firstCode  string
	secondCode string
}

// setupLegacyCodeTest initializes the test context with the shared testcontainer.
func setupLegacyCodeTest(t *testing.T) *legacyCodeTestContext {
	engineDB := testhelpers.GetEngineDB(t)
	tc := &legacyCodeTestContext{
		t:        t,
		engineDB: engineDB,
		repo:     NewLegacyCodeRepository(engineDB.DB),
		firstID:  uuid.New(),
		secondID: uuid.New(),
	}
	tc.firstCode = "lc-" + tc.firstID.String()[:8]
	tc.secondCode = "lc-" + tc.secondID.String()[:8]
	tc.ensureTestData()
	t.Cleanup(tc.cleanup)
	return tc
}

// ensureTestData creates two schedule rows with distinct fee parameters.
func (tc *legacyCodeTestContext) ensureTestData() {
	tc.t.Helper()
	ctx := context.Background()

	_, err := tc.engineDB.DB.Exec(ctx, `
		INSERT INTO legacy_codes (id, code, description, base_fee, factor_min, factor_regular, factor_max)
		VALUES ($1, $2, 'Beratung', 4.66, 1.0, 1.8, 3.5)
	`, tc.firstID, tc.firstCode)
	if err != nil {
		tc.t.Fatalf("failed to create first legacy code: %v", err)
	}

	_, err = tc.engineDB.DB.Exec(ctx, `
		INSERT INTO legacy_codes (id, code, description, base_fee, factor_min, factor_regular, factor_max)
		VALUES ($1, $2, 'Untersuchung', 10.72, 1.0, 2.3, 3.5)
	`, tc.secondID, tc.secondCode)
	if err != nil {
		tc.t.Fatalf("failed to create second legacy code: %v", err)
	}
}

// cleanup removes test data.
func (tc *legacyCodeTestContext) cleanup() {
	tc.t.Helper()
	_, _ = tc.engineDB.DB.Exec(context.Background(), "DELETE FROM legacy_codes WHERE id IN ($1, $2)", tc.firstID, tc.secondID)
}

func TestLegacyCodeRepository_FindByCodes_SkipsUnknown(t *testing.T) {
	tc := setupLegacyCodeTest(t)
	ctx := context.Background()

	codes, err := tc.repo.FindByCodes(ctx, []string{tc.firstCode, "does-not-exist", tc.secondCode})
	require.NoError(t, err)
	require.Len(t, codes, 2)

	byCode := make(map[string]bool, len(codes))
	for _, lc := range codes {
		byCode[lc.Code] = true
	}
	assert.True(t, byCode[tc.firstCode])
	assert.True(t, byCode[tc.secondCode])
}

func TestLegacyCodeRepository_FindByCodes_EmptyInput(t *testing.T) {
	tc := setupLegacyCodeTest(t)

	codes, err := tc.repo.FindByCodes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestLegacyCodeRepository_GetByCode(t *testing.T) {
	tc := setupLegacyCodeTest(t)
	ctx := context.Background()

	lc, err := tc.repo.GetByCode(ctx, tc.firstCode)
	require.NoError(t, err)
	require.NotNil(t, lc)

	assert.Equal(t, tc.firstID, lc.ID)
	assert.Equal(t, "Beratung", lc.Description)
	assert.True(t, lc.BaseFee.Equal(decimal.RequireFromString("4.66")))
	assert.True(t, lc.FactorRegular.Equal(decimal.RequireFromString("1.8")))
}

func TestLegacyCodeRepository_GetByCode_Unknown(t *testing.T) {
	tc := setupLegacyCodeTest(t)

	lc, err := tc.repo.GetByCode(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, lc)
}
