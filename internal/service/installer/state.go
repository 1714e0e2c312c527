package installer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type InstallState struct {
	RuntimePath string
	EnvVars     map[string]string
}

func NewInstallState(runtimePath string) *InstallState {
	return &InstallState{
		RuntimePath: runtimePath,
		EnvVars:     make(map[string]string),
	}
}

func (s *InstallState) EnvPath() string {
	return filepath.Join(s.RuntimePath, ".env")
}

// Save writes the collected variables to the runtime .env. An existing
// file is never overwritten.
func (s *InstallState) Save() error {
	if err := os.MkdirAll(s.RuntimePath, 0755); err != nil {
		return fmt.Errorf("failed to create runtime directory: %w", err)
	}

	content, err := godotenv.Marshal(s.EnvVars)
	if err != nil {
		return fmt.Errorf("failed to render .env: %w", err)
	}

	f, err := os.OpenFile(s.EnvPath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf(".env file already exists at %s", s.EnvPath())
	}
	if err != nil {
		return err
	}

	if _, err := f.WriteString(content + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
