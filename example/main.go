// FILE: lixenwraith/secureconfig/example/main.go
package main

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lixenwraith/secureconfig"
)

// DatabaseSettings is decoded from the dotted "db.*" keys of an environment.
type DatabaseSettings struct {
	DB struct {
		Host    string        `toml:"host"`
		Port    int           `toml:"port"`
		Timeout time.Duration `toml:"timeout"`
	} `toml:"db"`
}

const initialConfig = `[appSettings]
CurrentEnvironment = "Development"
CommonKey = "CommonValue"

[connectionStrings.entries.MovieDBContextDev]
connectionString = "Data Source=(LocalDb)\\MSSQLLocalDB;Initial Catalog=aspnet-MvcMovie;Integrated Security=SSPI"
providerName = "System.Data.SqlClient"

[EnvironmentSettings.Development.settings]
TestKey = "DevelopmentValue"
connection = "MovieDBContextDev"

[EnvironmentSettings.Development.settings.db]
host = "localhost"
port = 5432
timeout = "5s"

[EnvironmentSettings.Production.settings]
TestKey = "ProductionValue"
`

func main() {
	dir, err := os.MkdirTemp("", "secureconfig-example")
	if err != nil {
		log.Fatalf("❌ Failed to create working directory: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "app.toml")
	if err := os.WriteFile(path, []byte(initialConfig), 0600); err != nil {
		log.Fatalf("❌ Failed to write %s: %v", path, err)
	}

	// =========================================================================
	// PART 1: BUILD AND ENCRYPT
	// A random in-memory key keeps the demo off the OS keyring.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 1: Building settings and encrypting sensitive sections...")

	s, err := secureconfig.NewBuilder().
		WithFile(path).
		WithProvider(secureconfig.NewMachineProvider(secureconfig.RandomKeySource())).
		WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))).
		WithValidator(secureconfig.RequireEnvironments("Development", "Production")).
		Build()
	if err != nil {
		log.Fatalf("❌ Build failed: %v", err)
	}

	if err := s.Encrypt(); err != nil {
		log.Fatalf("❌ Encrypt failed: %v", err)
	}
	encrypted, _ := s.IsEncrypted()
	log.Printf("✅ Encrypted: %t", encrypted)

	// =========================================================================
	// PART 2: LOOKUPS
	// Every lookup decrypts its section in memory only.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 2: Reading values...")

	env, _ := s.CurrentEnvironment()
	dev, _ := s.KeyByEnvironment("TestKey", "")
	prod, _ := s.KeyByEnvironment("TestKey", "Production")
	common, _ := s.SharedKey("CommonKey")
	cs, err := s.ConnectionStringByEnvironment("connection", "")
	if err != nil {
		log.Fatalf("❌ Connection lookup failed: %v", err)
	}
	log.Printf("  Current environment: %s", env)
	log.Printf("  TestKey (current):    %s", dev)
	log.Printf("  TestKey (Production): %s", prod)
	log.Printf("  CommonKey:            %s", common)
	log.Printf("  connection:           %s (%s)", cs.ConnectionString, cs.ProviderName)

	var db DatabaseSettings
	if err := s.Scan("", &db); err != nil {
		log.Fatalf("❌ Scan failed: %v", err)
	}
	log.Printf("  db: %s:%d timeout=%s", db.DB.Host, db.DB.Port, db.DB.Timeout)

	if _, err := s.KeyByEnvironment("TestKey", "Staging"); errors.Is(err, secureconfig.ErrEnvironmentNotFound) {
		log.Printf("  Staging lookup: %v", err)
	}

	// =========================================================================
	// PART 3: UPDATE
	// The file is encrypted again once the write completes.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 3: Updating a setting in Production...")

	if err := s.UpdateSetting("TestKey", "UpdatedValue", "Production"); err != nil {
		log.Fatalf("❌ Update failed: %v", err)
	}
	updated, _ := s.KeyByEnvironment("TestKey", "Production")
	encrypted, _ = s.IsEncrypted()
	log.Printf("✅ TestKey (Production): %s, encrypted: %t", updated, encrypted)

	status, _ := s.Status()
	for _, st := range status {
		log.Printf("  %-32s protected=%t provider=%s", st.Path, st.Protected, st.Provider)
	}
}
