package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigHandler serves /api/config. GET returns the runtime settings as JSON.
// POST merges the posted fields into the settings stored in cfile, validates
// the result and replaces the file. Fields missing from the body keep their
// current value.
func ConfigHandler(cfile string) http.HandlerFunc {
	api := configAPI{cfile: cfile}
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			api.get(w)
		case http.MethodPost:
			api.update(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

type configAPI struct {
	cfile string
}

func (a configAPI) get(w http.ResponseWriter) {
	// The file is the only source of truth, it is read on every request.
	conf, err := ReadConfig(a.cfile, false)
	if err != nil {
		slog.Error("Failed to read config for API", "error", err)
		http.Error(w, "Failed to read configuration", http.StatusInternalServerError)
		return
	}
	writeJSON(w, conf.Runtime())
}

func (a configAPI) update(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	conf, err := ReadConfig(a.cfile, false)
	if err != nil {
		slog.Error("Failed to read config for update", "error", err)
		http.Error(w, "Failed to read configuration", http.StatusInternalServerError)
		return
	}

	rc := conf.Runtime()
	if err := json.NewDecoder(r.Body).Decode(&rc); err != nil {
		slog.Warn("Rejected config update", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	conf.ApplyRuntime(rc)

	if err := conf.Validate(); err != nil {
		slog.Warn("Rejected config update", "error", err)
		http.Error(w, fmt.Sprintf("Invalid configuration: %v", err), http.StatusBadRequest)
		return
	}

	if err := a.store(conf); err != nil {
		slog.Error("Failed to store config", "error", err)
		http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	// The watcher sees the new file and restarts the box.
	slog.Info("Stored config update", "file", a.cfile)
	writeJSON(w, rc)
}

// store replaces cfile through a rename so the watcher never sees a
// half-written file.
func (a configAPI) store(conf *Config) error {
	data, err := yaml.Marshal(conf)
	if err != nil {
		return fmt.Errorf("can't encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(a.cfile), ".so2rbox-*.yml")
	if err != nil {
		return fmt.Errorf("can't create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("can't write temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("can't chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("can't write temp file: %w", err)
	}
	return os.Rename(tmp.Name(), a.cfile)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}
