// Package homeassistant is the REST client for the Home Assistant core API.
//
// Everything the compiler needs from the platform flows through here: the
// entity states that build the catalog, service calls for the entity tester,
// and the config endpoints that persist and reload generated automations.
//
//	┌────────────┐   GET /api/states                    ┌────────────────┐
//	│            │ ───────────────────────────────────► │                │
//	│   Client   │   POST /api/services/{dom}/{svc}     │ Home Assistant │
//	│            │ ───────────────────────────────────► │  (supervisor   │
//	│  (bearer   │   POST /api/config/automation/       │     proxy)     │
//	│   token)   │        config/{object_id}            │                │
//	│            │ ───────────────────────────────────► │                │
//	└────────────┘                                      └────────────────┘
//
// # Key Types
//
//   - Client: authenticated HTTP client; one instance serves the whole
//     process.
//   - State: one row of GET /api/states (entity ID, state, attributes).
//   - CatalogFetcher: adapter that feeds States() into the catalog
//     refresher.
//
// # Thread Safety
//
// All Client methods are safe for concurrent use from multiple goroutines.
//
// # Usage
//
//	client := homeassistant.NewClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, cfg.GetHATimeout())
//	states, err := client.States(ctx)
//	if err != nil {
//	    return fmt.Errorf("loading entities: %w", err)
//	}
package homeassistant
