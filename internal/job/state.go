package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/pipeline"
)

// everything a worker needs to run one background batch
type State struct {
	ID       string
	OutDir   string
	LogFile  string
	Policy   pipeline.ErrorPolicy
	Pipeline *config.PipelineConfig
	Files    []string
}

type configDoc struct {
	OutDir   string                 `json:"output_dir"`
	LogFile  string                 `json:"log_file,omitempty"`
	Policy   pipeline.ErrorPolicy   `json:"policy,omitempty"`
	Pipeline *config.PipelineConfig `json:"pipeline"`
}

func ConfigPath(stateDir, id string) string {
	return filepath.Join(stateDir, "config_"+id+".json")
}

func FilesPath(stateDir, id string) string {
	return filepath.Join(stateDir, "files_"+id+".json")
}

// writes config_<id>.json and files_<id>.json
func Save(stateDir string, st *State) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	doc := configDoc{OutDir: st.OutDir, LogFile: st.LogFile, Policy: st.Policy, Pipeline: st.Pipeline}
	if err := writeJSON(ConfigPath(stateDir, st.ID), doc); err != nil {
		return err
	}
	if err := writeJSON(FilesPath(stateDir, st.ID), st.Files); err != nil {
		_ = Remove(stateDir, st.ID)
		return err
	}
	return nil
}

// reads back the state of job id and validates its pipeline
func Load(stateDir, id string) (*State, error) {
	var doc configDoc
	if err := readJSON(ConfigPath(stateDir, id), &doc); err != nil {
		return nil, err
	}
	var files []string
	if err := readJSON(FilesPath(stateDir, id), &files); err != nil {
		return nil, err
	}
	if doc.Pipeline == nil {
		return nil, fmt.Errorf("job %s: pipeline config missing", id)
	}
	if err := doc.Pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("job %s: %w", id, err)
	}
	return &State{
		ID:       id,
		OutDir:   doc.OutDir,
		LogFile:  doc.LogFile,
		Policy:   doc.Policy,
		Pipeline: doc.Pipeline,
		Files:    files,
	}, nil
}

// deletes both state documents; missing files are ignored
func Remove(stateDir, id string) error {
	var errs []error
	for _, p := range []string{ConfigPath(stateDir, id), FilesPath(stateDir, id)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read job state: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
