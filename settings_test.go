// FILE: lixenwraith/secureconfig/settings_test.go
package secureconfig

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureTOML = `[appSettings]
CurrentEnvironment = "Development"
CommonKey = "CommonValue"

[connectionStrings.entries.MovieDBContextDev]
connectionString = 'Data Source=(LocalDb)\MSSQLLocalDB;Initial Catalog=aspnet-MvcMovie;Integrated Security=SSPI;AttachDBFilename=|DataDirectory|\MoviesDev.mdf'
providerName = "System.Data.SqlClient"

[EnvironmentSettings.Development.settings]
TestKey = "DevelopmentValue"
connection = "MovieDBContextDev"

[EnvironmentSettings.Production.settings]
TestKey = "ProductionValue"
`

const devConnectionString = `Data Source=(LocalDb)\MSSQLLocalDB;Initial Catalog=aspnet-MvcMovie;Integrated Security=SSPI;AttachDBFilename=|DataDirectory|\MoviesDev.mdf`

func fixtureDocument(t *testing.T) *Document {
	t.Helper()
	doc, err := parseDocument([]byte(fixtureTOML), FormatTOML)
	require.NoError(t, err)
	return doc
}

// newTestSettings returns Settings over an in-memory copy of the fixture.
func newTestSettings(t *testing.T) (*Settings, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(fixtureDocument(t))
	return New(store, NewMachineProvider(RandomKeySource())), store
}

func snapshot(t *testing.T, store *MemoryStore) *Document {
	t.Helper()
	doc, err := store.Open()
	require.NoError(t, err)
	return doc
}

func TestEnvironmentScenarios(t *testing.T) {
	for _, encrypted := range []bool{false, true} {
		t.Run(fmt.Sprintf("Encrypted=%t", encrypted), func(t *testing.T) {
			s, _ := newTestSettings(t)
			if encrypted {
				require.NoError(t, s.Encrypt())
			}

			env, err := s.CurrentEnvironment()
			require.NoError(t, err)
			assert.Equal(t, "Development", env)

			val, err := s.KeyByEnvironment("TestKey", "")
			require.NoError(t, err)
			assert.Equal(t, "DevelopmentValue", val)

			val, err = s.KeyByEnvironment("TestKey", "Production")
			require.NoError(t, err)
			assert.Equal(t, "ProductionValue", val)

			val, err = s.SharedKey("CommonKey")
			require.NoError(t, err)
			assert.Equal(t, "CommonValue", val)

			cs, err := s.ConnectionStringByEnvironment("connection", "")
			require.NoError(t, err)
			assert.Equal(t, "MovieDBContextDev", cs.Name)
			assert.Equal(t, devConnectionString, cs.ConnectionString)
			assert.Equal(t, "System.Data.SqlClient", cs.ProviderName)

			direct, err := s.ConnectionString("MovieDBContextDev")
			require.NoError(t, err)
			assert.Equal(t, devConnectionString, direct)

			names, err := s.Environments()
			require.NoError(t, err)
			assert.Equal(t, []string{"Development", "Production"}, names)
		})
	}
}

func TestEmptyEnvironmentMeansCurrent(t *testing.T) {
	s, _ := newTestSettings(t)
	require.NoError(t, s.Encrypt())

	implicit, err := s.SettingsForCurrentEnvironment()
	require.NoError(t, err)
	explicit, err := s.SettingsForEnvironment("Development")
	require.NoError(t, err)
	assert.Equal(t, explicit, implicit)
	assert.Equal(t, map[string]string{"TestKey": "DevelopmentValue", "connection": "MovieDBContextDev"}, implicit)

	for _, env := range []string{"", "  "} {
		val, err := s.KeyByEnvironment("TestKey", env)
		require.NoError(t, err)
		assert.Equal(t, "DevelopmentValue", val)
	}
}

func TestEnvironmentResolution(t *testing.T) {
	t.Run("CaseInsensitiveFallback", func(t *testing.T) {
		s, _ := newTestSettings(t)
		val, err := s.KeyByEnvironment("TestKey", "production")
		require.NoError(t, err)
		assert.Equal(t, "ProductionValue", val)
	})

	t.Run("CaseCollision", func(t *testing.T) {
		doc := NewDocument()
		_, err := doc.AddEnvironment("QA").Set("K", "upper")
		require.NoError(t, err)
		_, err = doc.AddEnvironment("qa").Set("K", "lower")
		require.NoError(t, err)
		s := New(NewMemoryStore(doc), NewMachineProvider(RandomKeySource()))
		require.NoError(t, s.Encrypt())

		for range 50 {
			_, err := s.KeyByEnvironment("K", "Qa")
			require.ErrorIs(t, err, ErrEnvironmentNotFound)
		}

		val, err := s.KeyByEnvironment("K", "qa")
		require.NoError(t, err)
		assert.Equal(t, "lower", val)
		val, err = s.KeyByEnvironment("K", "QA")
		require.NoError(t, err)
		assert.Equal(t, "upper", val)
	})

	t.Run("EnvOverride", func(t *testing.T) {
		t.Setenv("SECURECONFIG_TEST_ENV", "Production")
		store := NewMemoryStore(fixtureDocument(t))
		s := NewWithOptions(store, Options{
			Provider:    NewMachineProvider(RandomKeySource()),
			EnvOverride: "SECURECONFIG_TEST_ENV",
		})

		env, err := s.CurrentEnvironment()
		require.NoError(t, err)
		assert.Equal(t, "Production", env)

		val, err := s.KeyByEnvironment("TestKey", "")
		require.NoError(t, err)
		assert.Equal(t, "ProductionValue", val)

		// Explicit environment still wins
		val, err = s.KeyByEnvironment("TestKey", "Development")
		require.NoError(t, err)
		assert.Equal(t, "DevelopmentValue", val)
	})

	t.Run("EmptyOverrideFallsBack", func(t *testing.T) {
		t.Setenv("SECURECONFIG_TEST_ENV", "")
		s := NewWithOptions(NewMemoryStore(fixtureDocument(t)), Options{EnvOverride: "SECURECONFIG_TEST_ENV"})
		env, err := s.CurrentEnvironment()
		require.NoError(t, err)
		assert.Equal(t, "Development", env)
	})

	t.Run("MissingCurrentEnvironment", func(t *testing.T) {
		doc := fixtureDocument(t)
		delete(doc.shared.settings, CurrentEnvironmentKey)
		s := New(NewMemoryStore(doc), NewMachineProvider(RandomKeySource()))

		_, err := s.CurrentEnvironment()
		assert.ErrorIs(t, err, ErrMissingCurrentEnvironment)

		_, err = s.KeyByEnvironment("TestKey", "")
		assert.ErrorIs(t, err, ErrMissingCurrentEnvironment)

		_, err = s.ConnectionStringByEnvironment("connection", "")
		assert.ErrorIs(t, err, ErrMissingCurrentEnvironment)

		val, err := s.KeyByEnvironment("TestKey", "Production")
		require.NoError(t, err)
		assert.Equal(t, "ProductionValue", val)
	})
}

func TestLookupErrors(t *testing.T) {
	s, _ := newTestSettings(t)
	require.NoError(t, s.Encrypt())

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"UnknownEnvironment", func() error { _, err := s.KeyByEnvironment("TestKey", "Staging"); return err }, ErrEnvironmentNotFound},
		{"UnknownKey", func() error { _, err := s.KeyByEnvironment("Missing", ""); return err }, ErrKeyNotFound},
		{"UnknownSharedKey", func() error { _, err := s.SharedKey("Missing"); return err }, ErrKeyNotFound},
		{"UnknownConnectionString", func() error { _, err := s.ConnectionString("Missing"); return err }, ErrConnectionStringNotFound},
		{"UnknownIndirectName", func() error { _, err := s.ConnectionStringByEnvironment("Missing", ""); return err }, ErrKeyNotFound},
		{"DanglingIndirection", func() error { _, err := s.ConnectionStringByEnvironment("TestKey", ""); return err }, ErrConnectionStringNotFound},
		{"EmptyKey", func() error { _, err := s.KeyByEnvironment("", ""); return err }, ErrInvalidArgument},
		{"EmptySharedKey", func() error { _, err := s.SharedKey(""); return err }, ErrInvalidArgument},
		{"EmptyConnectionName", func() error { _, err := s.ConnectionString(""); return err }, ErrInvalidArgument},
		{"EmptyIndirectName", func() error { _, err := s.ConnectionStringByEnvironment("", ""); return err }, ErrInvalidArgument},
		{"EmptyUpdateKey", func() error { return s.UpdateSetting("", "v", "") }, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("LookupErrorDetails", func(t *testing.T) {
		_, err := s.KeyByEnvironment("Missing", "Production")
		var lookupErr *LookupError
		require.ErrorAs(t, err, &lookupErr)
		assert.Equal(t, "EnvironmentSettings/Production", lookupErr.Section)
		assert.Equal(t, "Missing", lookupErr.Key)
	})

	t.Run("StillEncrypted", func(t *testing.T) {
		encrypted, err := s.IsEncrypted()
		require.NoError(t, err)
		assert.True(t, encrypted)
	})
}

func TestAccessorsPreserveProtectionState(t *testing.T) {
	s, store := newTestSettings(t)
	require.NoError(t, s.Encrypt())

	before := snapshot(t, store)
	saves := store.Saves()

	calls := map[string]func() error{
		"KeyByEnvironment": func() error { _, err := s.KeyByEnvironment("TestKey", ""); return err },
		"SettingsFor":      func() error { _, err := s.SettingsForEnvironment("Production"); return err },
		"ConnectionString": func() error { _, err := s.ConnectionString("MovieDBContextDev"); return err },
		"Indirect":         func() error { _, err := s.ConnectionStringByEnvironment("connection", ""); return err },
		"MissingKey":       func() error { _, err := s.KeyByEnvironment("Missing", ""); return err },
		"Scan":             func() error { var m map[string]string; return s.Scan("", &m) },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			_ = call()

			after := snapshot(t, store)
			for i, sec := range after.SensitiveSections() {
				orig := before.SensitiveSections()[i]
				assert.True(t, sec.IsProtected(), "section %s", sec.Path())
				assert.Equal(t, orig.cipherData, sec.cipherData, "section %s", sec.Path())
			}
			assert.Equal(t, saves, store.Saves(), "reads must not save")
		})
	}

	t.Run("PlaintextStaysPlaintext", func(t *testing.T) {
		s, store := newTestSettings(t)
		_, err := s.KeyByEnvironment("TestKey", "")
		require.NoError(t, err)

		encrypted, err := s.IsEncrypted()
		require.NoError(t, err)
		assert.False(t, encrypted)
		assert.Zero(t, store.Saves())
	})
}

func TestEncryptDecrypt(t *testing.T) {
	t.Run("Idempotent", func(t *testing.T) {
		s, store := newTestSettings(t)

		require.NoError(t, s.Encrypt())
		first := snapshot(t, store)
		saves := store.Saves()

		require.NoError(t, s.Encrypt())
		second := snapshot(t, store)
		assert.Equal(t, saves, store.Saves(), "second encrypt has nothing to save")
		for i, sec := range second.SensitiveSections() {
			assert.Equal(t, first.SensitiveSections()[i].cipherData, sec.cipherData)
		}

		require.NoError(t, s.Decrypt())
		require.NoError(t, s.Decrypt())
		encrypted, err := s.IsEncrypted()
		require.NoError(t, err)
		assert.False(t, encrypted)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		s, store := newTestSettings(t)
		original := fixtureDocument(t)

		require.NoError(t, s.Encrypt())
		encrypted := snapshot(t, store)
		for _, sec := range encrypted.SensitiveSections() {
			assert.True(t, sec.IsProtected())
			assert.Equal(t, MachineProviderName, sec.ProviderName())
			assert.Nil(t, sec.settings)
			assert.Nil(t, sec.connections)
		}
		assert.False(t, encrypted.Shared().IsProtected())

		require.NoError(t, s.Decrypt())
		decrypted := snapshot(t, store)
		for _, name := range original.EnvironmentNames() {
			want, _ := original.Environment(name)
			got, ok := decrypted.Environment(name)
			require.True(t, ok)
			assert.Equal(t, want.Settings(), got.Settings())
		}
		assert.Equal(t, original.connections.connections, decrypted.connections.connections)
		assert.Equal(t, original.shared.settings, decrypted.shared.settings)
	})

	t.Run("EmptyConnectionsSection", func(t *testing.T) {
		doc := NewDocument()
		_, err := doc.AddEnvironment("QA").Set("k", "v")
		require.NoError(t, err)
		store := NewMemoryStore(doc)
		s := New(store, NewMachineProvider(RandomKeySource()))

		require.NoError(t, s.Encrypt())
		encrypted, err := s.IsEncrypted()
		require.NoError(t, err)
		assert.True(t, encrypted)

		names, err := s.ConnectionNames()
		require.NoError(t, err)
		assert.Empty(t, names)
		assert.False(t, snapshot(t, store).ConnectionStrings().IsProtected())
	})

	t.Run("EmptyDocument", func(t *testing.T) {
		store := NewMemoryStore(nil)
		s := New(store, NewMachineProvider(RandomKeySource()))

		require.NoError(t, s.Decrypt())
		require.NoError(t, s.Encrypt())
		assert.Zero(t, store.Saves())

		encrypted, err := s.IsEncrypted()
		require.NoError(t, err)
		assert.True(t, encrypted, "nothing to protect is reported as protected")
	})
}

func TestUpdateSetting(t *testing.T) {
	t.Run("UpdateThenRead", func(t *testing.T) {
		s, _ := newTestSettings(t)

		require.NoError(t, s.UpdateSetting("TestKey", "UpdatedValue", "Production"))

		val, err := s.KeyByEnvironment("TestKey", "Production")
		require.NoError(t, err)
		assert.Equal(t, "UpdatedValue", val)

		// Other environments unaffected
		val, err = s.KeyByEnvironment("TestKey", "Development")
		require.NoError(t, err)
		assert.Equal(t, "DevelopmentValue", val)

		encrypted, err := s.IsEncrypted()
		require.NoError(t, err)
		assert.True(t, encrypted)
	})

	t.Run("InsertIntoCurrent", func(t *testing.T) {
		s, _ := newTestSettings(t)
		require.NoError(t, s.Encrypt())

		require.NoError(t, s.UpdateSetting("NewKey", "NewValue", ""))
		val, err := s.KeyByEnvironment("NewKey", "Development")
		require.NoError(t, err)
		assert.Equal(t, "NewValue", val)
	})

	t.Run("FailedWriteStillEncrypts", func(t *testing.T) {
		s, _ := newTestSettings(t)

		err := s.UpdateSetting("TestKey", "v", "Staging")
		assert.ErrorIs(t, err, ErrEnvironmentNotFound)

		encrypted, err := s.IsEncrypted()
		require.NoError(t, err)
		assert.True(t, encrypted)
	})

	t.Run("SaveFailure", func(t *testing.T) {
		store := &failingStore{MemoryStore: NewMemoryStore(fixtureDocument(t)), saveErr: errors.New("disk full")}
		s := New(store, NewMachineProvider(RandomKeySource()))

		err := s.UpdateSetting("TestKey", "v", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Zero(t, store.Saves())
	})

	t.Run("KeepsOriginalProvider", func(t *testing.T) {
		age := newTestAgeProvider(t)
		store := NewMemoryStore(fixtureDocument(t))
		require.NoError(t, New(store, age).Encrypt())

		s := NewWithOptions(store, Options{
			Provider:  NewMachineProvider(RandomKeySource()),
			Providers: []Provider{age},
		})
		require.NoError(t, s.UpdateSetting("TestKey", "Moved", "Production"))

		sec, ok := snapshot(t, store).Environment("Production")
		require.True(t, ok)
		assert.Equal(t, AgeProviderName, sec.ProviderName())

		val, err := s.KeyByEnvironment("TestKey", "Production")
		require.NoError(t, err)
		assert.Equal(t, "Moved", val)
	})
}

func TestConcurrentAccess(t *testing.T) {
	s, _ := newTestSettings(t)
	require.NoError(t, s.Encrypt())

	var wg sync.WaitGroup
	errs := make(chan error, 40)

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			val, err := s.KeyByEnvironment("TestKey", "Production")
			if err == nil && val != "ProductionValue" && val != "Concurrent" {
				err = fmt.Errorf("unexpected value %q", val)
			}
			errs <- err
		}()
		go func(i int) {
			defer wg.Done()
			errs <- s.UpdateSetting(fmt.Sprintf("key%d", i), "Concurrent", "Development")
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	settings, err := s.SettingsForEnvironment("Development")
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		assert.Equal(t, "Concurrent", settings[fmt.Sprintf("key%d", i)])
	}
}

// failingStore is a MemoryStore whose Save always fails.
type failingStore struct {
	*MemoryStore
	saveErr error
}

func (f *failingStore) Save(*Document) error { return f.saveErr }
