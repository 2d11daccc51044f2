package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todmy/faers-signals/pkg/models"
)

func fixtureDrugs() []DrugMention {
	return []DrugMention{
		{CaseID: "100", DrugName: "ASPIRIN", RoleCode: "PS"},
		{CaseID: "100", DrugName: "metformin", RoleCode: "C"},
		{CaseID: "200", DrugName: "bayer low dose", ActiveIngredient: "Aspirin", RoleCode: "C"},
		{CaseID: "300", DrugName: "ecotrin", RxNormName: "aspirin 81 mg", RoleCode: "SS"},
		{CaseID: "400", DrugName: "ibuprofen", RoleCode: "PS"},
		{CaseID: "500", DrugName: "acetaminophen", BestMatchName: "ASPIRIN/ACETAMINOPHEN", RoleCode: "ps"},
	}
}

func fixtureReactions() []Reaction {
	return []Reaction{
		{CaseID: "100", PreferredTerm: "Gastrointestinal haemorrhage"},
		{CaseID: "100", PreferredTerm: "gastrointestinal haemorrhage."},
		{CaseID: "100", PreferredTerm: "Nausea"},
		{CaseID: "200", PreferredTerm: "unknown"},
		{CaseID: "300", PreferredTerm: "Tinnitus"},
		{CaseID: "400", PreferredTerm: "nausea"},
		{CaseID: "999", PreferredTerm: "orphan reaction"},
	}
}

func caseByID(cases []models.Case, id string) (models.Case, bool) {
	for _, c := range cases {
		if c.CaseID == id {
			return c, true
		}
	}
	return models.Case{}, false
}

func TestMatchesDrug(t *testing.T) {
	drugs := fixtureDrugs()
	assert.True(t, MatchesDrug(drugs[0], "aspirin"))
	assert.True(t, MatchesDrug(drugs[2], "ASPIRIN"))
	assert.True(t, MatchesDrug(drugs[3], "aspirin"))
	assert.True(t, MatchesDrug(drugs[5], "aspirin"))
	assert.False(t, MatchesDrug(drugs[4], "aspirin"))
	assert.False(t, MatchesDrug(drugs[0], "  "))
}

func TestBuild_FlagsAndTerms(t *testing.T) {
	cases := Build("aspirin", fixtureDrugs(), fixtureReactions())
	require.Len(t, cases, 5)

	ids := make([]string, len(cases))
	for i, c := range cases {
		ids[i] = c.CaseID
	}
	assert.Equal(t, []string{"100", "200", "300", "400", "500"}, ids)

	c100, _ := caseByID(cases, "100")
	assert.True(t, c100.IsQueryDrug)
	assert.True(t, c100.IsPrimarySuspectQueryDrug)
	assert.Equal(t, []string{"gastrointestinal haemorrhage", "nausea"}, c100.EventTerms)

	c200, _ := caseByID(cases, "200")
	assert.True(t, c200.IsQueryDrug)
	assert.False(t, c200.IsPrimarySuspectQueryDrug)
	assert.Empty(t, c200.EventTerms)

	c400, _ := caseByID(cases, "400")
	assert.False(t, c400.IsQueryDrug)
	assert.False(t, c400.IsPrimarySuspectQueryDrug, "PS role on another drug must not flag the query drug")

	c500, _ := caseByID(cases, "500")
	assert.True(t, c500.IsPrimarySuspectQueryDrug)

	_, ok := caseByID(cases, "999")
	assert.False(t, ok)
}

func TestBuild_PrimarySuspectImpliesMention(t *testing.T) {
	for _, c := range Build("aspirin", fixtureDrugs(), fixtureReactions()) {
		if c.IsPrimarySuspectQueryDrug {
			assert.True(t, c.IsQueryDrug, c.CaseID)
		}
	}
}

func TestBuild_WithAgeRange(t *testing.T) {
	demos := []Demographic{
		{CaseID: "100", CaseVersion: 1, Age: 70, AgeCode: "YR", HasAge: true},
		{CaseID: "100", CaseVersion: 2, Age: 45, AgeCode: "YR", HasAge: true},
		{CaseID: "200", CaseVersion: 1, Age: 6, AgeCode: "MON", HasAge: true},
		{CaseID: "300", CaseVersion: 1, HasAge: false},
		{CaseID: "400", CaseVersion: 1, Age: 30, AgeCode: "YR", HasAge: true},
	}

	cases := Build("aspirin", fixtureDrugs(), fixtureReactions(), WithAgeRange(18, 65, demos))

	ids := make([]string, len(cases))
	for i, c := range cases {
		ids[i] = c.CaseID
	}
	assert.Equal(t, []string{"100", "400"}, ids)
}

func TestBuild_WithPreferredTerms(t *testing.T) {
	cases := Build("aspirin", fixtureDrugs(), fixtureReactions(), WithPreferredTerms("Nausea", "gastrointestinal haemorrhage"))
	require.Len(t, cases, 1)
	assert.Equal(t, "100", cases[0].CaseID)

	cases = Build("aspirin", fixtureDrugs(), fixtureReactions(), WithPreferredTerms("nausea"))
	assert.Len(t, cases, 2)
}

func TestLatestVersions(t *testing.T) {
	latest := LatestVersions([]Demographic{
		{CaseID: "1", CaseVersion: 1, FDADate: "20240101"},
		{CaseID: "1", CaseVersion: 3, FDADate: "20240105"},
		{CaseID: "1", CaseVersion: 3, FDADate: "20240201"},
		{CaseID: "1", CaseVersion: 2, FDADate: "20240301"},
		{CaseID: "2", CaseVersion: 1, FDADate: "20230101"},
	})

	require.Len(t, latest, 2)
	assert.Equal(t, 3, latest["1"].CaseVersion)
	assert.Equal(t, "20240201", latest["1"].FDADate)
}
