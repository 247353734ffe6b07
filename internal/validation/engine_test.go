package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

type fakeTemplateStore struct {
	templates []model.Template
}

func (f *fakeTemplateStore) FindByRequiredTerms(ctx context.Context, tx store.DBTransaction, terms []string) ([]model.Template, error) {
	var out []model.Template
	for _, tmpl := range f.templates {
		matches := true
		for _, term := range terms {
			if !contains(tmpl.Identifier, term) {
				matches = false
				break
			}
		}
		if matches {
			out = append(out, tmpl)
		}
	}
	return out, nil
}

func (f *fakeTemplateStore) Get(ctx context.Context, tx store.DBTransaction, identifier string) (model.Template, error) {
	for _, tmpl := range f.templates {
		if tmpl.Identifier == identifier {
			return tmpl, nil
		}
	}
	return model.Template{}, store.ErrNotFound
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func TestEngine_Evaluate_PassesGoodMatch(t *testing.T) {
	store := &fakeTemplateStore{templates: []model.Template{
		{Identifier: "cisco_ios_show_ip_arp", Body: arpTemplateBody},
	}}
	e := New(store)

	output := "Internet  10.0.0.1    -          aabb.ccdd.eeff  ARPA   Gi0/0\n" +
		"Internet  10.0.0.2    5          aabb.ccdd.1122  ARPA   Gi0/1\n"

	result, err := e.Evaluate(context.Background(), nil, "cisco_ios_show_ip_arp", output, 30)
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, result.Status)
	assert.Equal(t, "cisco_ios_show_ip_arp", result.TemplateIdentifier)
	assert.Len(t, result.Records, 2)
	assert.GreaterOrEqual(t, result.Score, 30.0)
}

func TestEngine_Evaluate_NoTemplateWhenNoneMatchFilter(t *testing.T) {
	store := &fakeTemplateStore{templates: []model.Template{
		{Identifier: "juniper_junos_show_interfaces", Body: arpTemplateBody},
	}}
	e := New(store)

	result, err := e.Evaluate(context.Background(), nil, "cisco_ios_show_ip_arp", "anything", 30)
	require.NoError(t, err)
	assert.Equal(t, StatusNoTemplate, result.Status)
	assert.Equal(t, 0.0, result.Score)
}

func TestEngine_Evaluate_FailsBelowMinScore(t *testing.T) {
	store := &fakeTemplateStore{templates: []model.Template{
		{Identifier: "cisco_ios_show_ip_arp", Body: arpTemplateBody},
	}}
	e := New(store)

	result, err := e.Evaluate(context.Background(), nil, "cisco_ios_show_ip_arp", "no matching lines here", 30)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Empty(t, result.Records)
}

func TestSplitTerms(t *testing.T) {
	assert.Equal(t, []string{"cisco", "ios", "show", "ip", "arp"}, splitTerms("cisco_ios_show_ip_arp"))
}

func TestScoreTemplate_VersionIdentifierRewardsExactlyOneRecord(t *testing.T) {
	oneRecord := []map[string]string{{"VERSION": "15.2"}}
	twoRecords := []map[string]string{{"VERSION": "15.2"}, {"VERSION": "15.3"}}

	assert.Greater(t, scoreTemplate("cisco_ios_show_version", oneRecord, 1), scoreTemplate("cisco_ios_show_version", twoRecords, 1))
}
