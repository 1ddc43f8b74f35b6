package plan

// Resource identifies a quota-metered action.
type Resource string

const (
	ResourceCVAnalysis Resource = "cv_analysis"
	ResourceCVCreation Resource = "cv_creation"
)

// Resources lists every metered resource. Activation creates one zero
// counter per entry for the new subscription.
var Resources = []Resource{ResourceCVAnalysis, ResourceCVCreation}

const (
	FreeTrialPlan = "free_trial"
	StandardPlan  = "standard"
	ProPlan       = "pro"
)

// Plan is an immutable descriptor of pricing, duration and quotas.
type Plan struct {
	Key              string
	DisplayName      string
	Price            float64
	Currency         string
	DurationDays     int
	Quotas           map[Resource]int
	AllowedProviders map[string]bool
	Features         []string
}

// IsFree reports whether the plan bypasses the payment gateway.
func (p Plan) IsFree() bool {
	return p.Price == 0
}

// Quota returns the monthly limit for a resource, 0 if unknown.
func (p Plan) Quota(resource Resource) int {
	return p.Quotas[resource]
}

// AllowsProvider reports whether the plan may use the given LLM provider.
func (p Plan) AllowsProvider(provider string) bool {
	return p.AllowedProviders[provider]
}

// Catalog is a read-only plan table, loaded once at startup and safe to
// share without synchronization.
type Catalog struct {
	byKey   map[string]Plan
	ordered []string
}

// NewCatalog builds a catalog from the given plans, preserving order.
// Later plans with a duplicate key override earlier ones.
func NewCatalog(plans ...Plan) *Catalog {
	c := &Catalog{byKey: make(map[string]Plan, len(plans))}
	for _, p := range plans {
		if _, exists := c.byKey[p.Key]; !exists {
			c.ordered = append(c.ordered, p.Key)
		}
		c.byKey[p.Key] = p
	}
	return c
}

// Get returns the plan for key.
func (c *Catalog) Get(key string) (Plan, bool) {
	p, ok := c.byKey[key]
	return p, ok
}

// List returns all plans in catalog order.
func (c *Catalog) List() []Plan {
	out := make([]Plan, 0, len(c.ordered))
	for _, key := range c.ordered {
		out = append(out, c.byKey[key])
	}
	return out
}

// QuotaFor returns the quota limit for (key, resource). Unknown plan or
// resource is 0: lookups never fail, unknown keys are a deny signal.
func (c *Catalog) QuotaFor(key string, resource Resource) int {
	p, ok := c.byKey[key]
	if !ok {
		return 0
	}
	return p.Quota(resource)
}

// Default returns the production catalog. Price changes require a deploy,
// which matches how slowly plans actually change.
func Default() *Catalog {
	return NewCatalog(
		Plan{
			Key:          FreeTrialPlan,
			DisplayName:  "Prueba Gratuita",
			Price:        0,
			Currency:     "CLP",
			DurationDays: 7,
			Quotas: map[Resource]int{
				ResourceCVAnalysis: 5,
				ResourceCVCreation: 1,
			},
			AllowedProviders: map[string]bool{"openai": true},
			Features: []string{
				"5 análisis de CV",
				"1 CV con plantilla básica",
			},
		},
		Plan{
			Key:          StandardPlan,
			DisplayName:  "Plan Estándar",
			Price:        5990,
			Currency:     "CLP",
			DurationDays: 30,
			Quotas: map[Resource]int{
				ResourceCVAnalysis: 10,
				ResourceCVCreation: 5,
			},
			AllowedProviders: map[string]bool{"openai": true, "gemini": true},
			Features: []string{
				"10 análisis de CV al mes",
				"5 CVs con todas las plantillas",
				"Cartas de presentación",
			},
		},
		Plan{
			Key:          ProPlan,
			DisplayName:  "Plan Pro",
			Price:        9990,
			Currency:     "CLP",
			DurationDays: 30,
			Quotas: map[Resource]int{
				ResourceCVAnalysis: 50,
				ResourceCVCreation: 20,
			},
			AllowedProviders: map[string]bool{"openai": true, "gemini": true, "anthropic": true},
			Features: []string{
				"50 análisis de CV al mes",
				"20 CVs con todas las plantillas",
				"Cartas de presentación",
				"Búsqueda de empleo integrada",
				"Soporte prioritario",
			},
		},
	)
}
