package mapping_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/agricred-web/internal/mapping"
)

func TestRoundTripAllLabels(t *testing.T) {
	t.Parallel()

	for _, category := range mapping.Categories() {
		for _, label := range mapping.Labels(category) {
			code, ok := mapping.Encode(category, label)
			require.True(t, ok, "%s/%s should encode", category, label)

			decoded, ok := mapping.Decode(category, code)
			require.True(t, ok, "%s/%d should decode", category, code)
			require.Equal(t, label, decoded)
		}
	}
}

func TestEncodeKnownValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		category string
		label    string
		code     int
	}{
		{mapping.Gender, "Male", 1},
		{mapping.Gender, "Female", 0},
		{mapping.Region, "South West", 5},
		{mapping.State, "FCT", 14},
		{mapping.State, "Zamfara", 36},
		{mapping.CropType, "Oil Palm", 8},
		{mapping.LivestockType, mapping.NotApplicable, 5},
		{mapping.RepaymentStatus, "Paid on Time", 2},
		{mapping.InputUsage, "Some", 1},
		{mapping.Labor, "Hired", 2},
		{mapping.Irrigation, "Yes", 1},
	}
	for _, tc := range cases {
		code, ok := mapping.Encode(tc.category, tc.label)
		require.True(t, ok, "%s/%s", tc.category, tc.label)
		require.Equal(t, tc.code, code, "%s/%s", tc.category, tc.label)
	}
}

func TestEncodeTrimsWhitespace(t *testing.T) {
	t.Parallel()

	code, ok := mapping.Encode(mapping.Education, "  Tertiary ")
	require.True(t, ok)
	require.Equal(t, 2, code)
}

func TestAbsentValues(t *testing.T) {
	t.Parallel()

	_, ok := mapping.Encode(mapping.Gender, "Other")
	require.False(t, ok)

	_, ok = mapping.Encode("Unknown_Category", "Yes")
	require.False(t, ok)

	_, ok = mapping.Decode(mapping.Education, 9)
	require.False(t, ok)

	_, ok = mapping.Decode("Unknown_Category", 0)
	require.False(t, ok)

	require.Nil(t, mapping.Labels("Unknown_Category"))
}

func TestLabelsOrderedByCode(t *testing.T) {
	t.Parallel()

	labels := mapping.Labels(mapping.MaritalStatus)
	require.Equal(t, []string{"Divorced", "Married", "Single"}, labels)

	labels[0] = "mutated"
	require.Equal(t, "Divorced", mapping.Labels(mapping.MaritalStatus)[0])
}

func TestCategoriesComplete(t *testing.T) {
	t.Parallel()

	require.Len(t, mapping.Categories(), 16)
	require.True(t, mapping.Has(mapping.ExtensionServices))
	require.False(t, mapping.Has("Farm_Size"))
}
