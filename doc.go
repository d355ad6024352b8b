// File: lixenwraith/secureconfig/doc.go

// Package secureconfig provides environment-aware access to an application
// configuration file whose sensitive sections are kept encrypted at rest.
//
// A configuration source holds three regions:
//   - appSettings: flat shared settings, never encrypted. The
//     CurrentEnvironment key selects the environment in effect.
//   - connectionStrings: named connection strings, encrypted as one section.
//   - EnvironmentSettings/<name>: one settings section per environment,
//     each encrypted independently.
//
// Every accessor opens a fresh snapshot. Encrypted sections are decrypted
// only for the duration of a lookup and encrypted again before the call
// returns, whether it succeeds or fails. Reads never write the file back.
//
// Quick Start:
//
//	s, err := secureconfig.Quick("app.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := s.Encrypt(); err != nil {
//	    log.Fatal(err)
//	}
//
//	key, _ := s.KeyByEnvironment("TestKey", "")          // current environment
//	prod, _ := s.KeyByEnvironment("TestKey", "Production") // explicit environment
//	cs, _ := s.ConnectionStringByEnvironment("connection", "")
//
// Protection Providers:
//
// MachineProvider seals sections with XChaCha20-Poly1305 under per-section
// keys derived from a master key held in the OS keyring, which binds the
// file to this machine and user. AgeProvider seals to an age X25519 identity.
// A Settings instance protects with one provider and can open sections sealed
// by any registered provider:
//
//	s, err := secureconfig.NewBuilder().
//	    WithFile("app.toml").
//	    WithProvider(secureconfig.NewMachineProvider(secureconfig.NewKeyringKeySource("", ""))).
//	    WithProviders(secureconfig.NewAgeProvider(identity)).
//	    WithEnvOverride("APP_ENVIRONMENT").
//	    Build()
//
// Thread Safety:
// Calls through one Settings are serialized. Separate instances or processes
// sharing a file are not coordinated; the last save wins.
package secureconfig
