package estimator

import "github.com/launchkit-studio/site-assistant/internal/agent/model"

// Catalog is the read-only list of features a project can add.
type Catalog []model.FeatureOption

// DefaultCatalog is the feature list offered on the estimator form.
var DefaultCatalog = Catalog{
	{ID: "authentication", Label: "User accounts & authentication", Value: 1500},
	{ID: "payments", Label: "Payments & subscriptions", Value: 2500},
	{ID: "cms", Label: "Content management", Value: 2000},
	{ID: "analytics", Label: "Analytics dashboard", Value: 1800},
	{ID: "integrations", Label: "Third-party API integrations", Value: 3000},
	{ID: "ai-assistant", Label: "AI assistant", Value: 4000},
	{ID: "i18n", Label: "Internationalization", Value: 1200},
}

// Lookup returns the option with the given id.
func (c Catalog) Lookup(id string) (model.FeatureOption, bool) {
	for _, f := range c {
		if f.ID == id {
			return f, true
		}
	}
	return model.FeatureOption{}, false
}

// IDs lists the catalog ids in catalog order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for _, f := range c {
		ids = append(ids, f.ID)
	}
	return ids
}
