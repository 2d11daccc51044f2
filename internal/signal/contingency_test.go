package signal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todmy/faers-signals/pkg/models"
)

func makeCases(prefix string, n int, exposed, primary bool, terms ...string) []models.Case {
	cases := make([]models.Case, n)
	for i := range cases {
		cases[i] = models.Case{
			CaseID:                    fmt.Sprintf("%s-%d", prefix, i),
			IsQueryDrug:               exposed,
			IsPrimarySuspectQueryDrug: primary,
			EventTerms:                append([]string(nil), terms...),
		}
	}
	return cases
}

func TestPartition_Completeness(t *testing.T) {
	var cases []models.Case
	cases = append(cases, makeCases("ps", 4, true, true, "nausea")...)
	cases = append(cases, makeCases("mention", 3, true, false, "nausea")...)
	cases = append(cases, makeCases("other", 5, false, false, "rash")...)

	for _, exposure := range Exposures {
		cohort := Partition(cases, exposure)
		assert.Equal(t, len(cases), len(cohort.Exposed)+len(cohort.Unexposed), exposure.String())

		seen := make(map[string]int)
		for _, c := range cohort.Exposed {
			assert.True(t, exposure.Exposed(c))
			seen[c.CaseID]++
		}
		for _, c := range cohort.Unexposed {
			assert.False(t, exposure.Exposed(c))
			seen[c.CaseID]++
		}
		for id, n := range seen {
			assert.Equal(t, 1, n, "case %s assigned %d times", id, n)
		}
	}

	assert.Len(t, Partition(cases, ExposureAnyMention).Exposed, 7)
	assert.Len(t, Partition(cases, ExposurePrimarySuspect).Exposed, 4)
}

func TestBuildTables_CountsAndMarginals(t *testing.T) {
	var cases []models.Case
	cases = append(cases, makeCases("e1", 4, true, false, "headache", "nausea")...)
	cases = append(cases, makeCases("e2", 2, true, false, "headache")...)
	cases = append(cases, makeCases("u1", 3, false, false, "headache")...)
	cases = append(cases, makeCases("u2", 7, false, false, "rash")...)

	tables := BuildTables(cases, ExposureAnyMention, 3)
	require.Len(t, tables, 2)

	assert.Equal(t, Table{Term: "headache", A: 6, B: 0, C: 3, D: 7}, tables[0])
	assert.Equal(t, Table{Term: "nausea", A: 4, B: 2, C: 0, D: 10}, tables[1])

	for _, table := range tables {
		assert.Equal(t, 6, table.A+table.B)
		assert.Equal(t, 10, table.C+table.D)
	}
}

func TestBuildTables_DuplicateTermsCountOncePerCase(t *testing.T) {
	cases := makeCases("e", 3, true, true, "fatigue", "fatigue", "fatigue")
	cases = append(cases, makeCases("u", 2, false, false, "fatigue", "fatigue")...)

	tables := BuildTables(cases, ExposureAnyMention, 1)
	require.Len(t, tables, 1)
	assert.Equal(t, Table{Term: "fatigue", A: 3, B: 0, C: 2, D: 0}, tables[0])
}

func TestBuildTables_ScreeningBoundary(t *testing.T) {
	minCount := 4
	var cases []models.Case
	cases = append(cases, makeCases("below", minCount-1, true, false, "dizziness")...)
	cases = append(cases, makeCases("at", minCount, true, false, "insomnia")...)
	cases = append(cases, makeCases("u", 10, false, false, "dizziness", "insomnia", "cough")...)

	tables := BuildTables(cases, ExposureAnyMention, minCount)
	require.Len(t, tables, 1)
	assert.Equal(t, "insomnia", tables[0].Term)
	assert.Equal(t, minCount, tables[0].A)
}

func TestBuildTables_UnexposedOnlyTermExcluded(t *testing.T) {
	cases := makeCases("e", 5, true, false, "headache")
	cases = append(cases, makeCases("u", 5, false, false, "alopecia")...)

	tables := BuildTables(cases, ExposureAnyMention, 1)
	require.Len(t, tables, 1)
	assert.Equal(t, "headache", tables[0].Term)
}

func TestBuildTables_EmptyExposedCohort(t *testing.T) {
	cases := makeCases("u", 10, false, false, "headache")

	tables := BuildTables(cases, ExposureAnyMention, 1)
	assert.NotNil(t, tables)
	assert.Empty(t, tables)

	assert.Empty(t, BuildTables(nil, ExposurePrimarySuspect, 3))
}

func TestBuildTables_StableOrder(t *testing.T) {
	cases := makeCases("e", 3, true, true, "zoster", "anaemia", "myalgia")

	first := BuildTables(cases, ExposurePrimarySuspect, 1)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildTables(cases, ExposurePrimarySuspect, 1))
	}
	assert.Equal(t, "anaemia", first[0].Term)
	assert.Equal(t, "zoster", first[2].Term)
}

func TestNewTable_RejectsNegativeCells(t *testing.T) {
	_, err := NewTable("x", 1, -1, 0, 0)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	table, err := NewTable("x", 0, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "x", table.Term)
}

func TestParseExposure(t *testing.T) {
	for _, exposure := range Exposures {
		parsed, err := ParseExposure(exposure.String())
		require.NoError(t, err)
		assert.Equal(t, exposure, parsed)
	}

	_, err := ParseExposure("concomitant")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
