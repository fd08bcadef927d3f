package config

import "testing"

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	c := FromEnv(env(nil))
	if c.Port != "8080" || c.Driver != DriverMemory {
		t.Errorf("unexpected defaults %+v", c)
	}
	if c.LowStockThreshold != 5 || c.LowStockSchedule != "@every 5m" {
		t.Errorf("unexpected low stock defaults %+v", c)
	}
}

func TestFromEnvInvalidNumbersFallBack(t *testing.T) {
	c := FromEnv(env(map[string]string{"LOW_STOCK_THRESHOLD": "many", "REDIS_DB": "-2"}))
	if c.LowStockThreshold != 5 {
		t.Errorf("expected threshold 5, got %d", c.LowStockThreshold)
	}
	if c.RedisDB != 0 {
		t.Errorf("expected redis db 0, got %d", c.RedisDB)
	}
	c = FromEnv(env(map[string]string{"LOW_STOCK_THRESHOLD": "3"}))
	if c.LowStockThreshold != 3 {
		t.Errorf("expected threshold 3, got %d", c.LowStockThreshold)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		values  map[string]string
		wantErr bool
	}{
		{"memory ok", map[string]string{"AUTH_JWT_SECRET": "s"}, false},
		{"missing secret", map[string]string{}, true},
		{"unknown driver", map[string]string{"AUTH_JWT_SECRET": "s", "STORE_DRIVER": "mongo"}, true},
		{"redis without addr", map[string]string{"AUTH_JWT_SECRET": "s", "STORE_DRIVER": "redis"}, true},
		{"redis ok", map[string]string{"AUTH_JWT_SECRET": "s", "STORE_DRIVER": "redis", "REDIS_ADDR": "localhost:6379"}, false},
		{"postgres without url", map[string]string{"AUTH_JWT_SECRET": "s", "STORE_DRIVER": "postgres"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := FromEnv(env(tc.values)).Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}
