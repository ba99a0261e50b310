package config

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/sidkik/devmirror/pkg/errors"
)

const (
	// DefaultPath is where the configuration is persisted by default.
	DefaultPath = "~/.devmirror.yaml"

	// InitialConfigVersion is the first version of the persisted
	// configuration. Files that do not specify a version default to it.
	InitialConfigVersion = "v1alpha1"

	// SupportedConfigVersion is the version of the persisted configuration
	// understood by this binary.
	SupportedConfigVersion = "v1alpha1"
)

// parseConfigErrTemplate is a template for when the stored configuration
// can't be parsed. The yaml library constructs errors in a way that loses
// context, and so we can only pass the error message on.
const parseConfigErrTemplate = "Configuration file could not be parsed. " +
	"Please review %q.\n" +
	"Common pitfalls include:\n" +
	" - Using the wrong types for fields\n" +
	" - Having extra fields inside the config file\n\n" +
	"For reference, here is the error from the parser:\n" +
	"%s"

type incompatibleVersionError struct {
	path, exp, actual string
}

func (err incompatibleVersionError) Error() string {
	return err.FriendlyMessage()
}

func (err incompatibleVersionError) FriendlyMessage() string {
	return fmt.Sprintf("The configuration file %q is incompatible "+
		"with this version of devmirror.\n"+
		"Expected version %q, but got %q.", err.path, err.exp, err.actual)
}

// Store persists a Configuration between runs.
type Store interface {
	// Load returns the stored configuration. The boolean is false if
	// nothing has been stored yet.
	Load() (Configuration, bool, error)

	// Save stores everything in `cfg` except its projects.
	Save(cfg Configuration) error
}

// FileStore is a Store backed by a single YAML file.
type FileStore struct {
	path string
}

// Mocked for unit testing.
var (
	fs            = afero.NewOsFs()
	homedirExpand = homedir.Expand
)

// NewFileStore creates a store that persists the configuration at `path`.
// A leading `~` is expanded to the user's home directory.
func NewFileStore(path string) FileStore {
	return FileStore{path: path}
}

// Path returns the expanded path of the backing file.
func (s FileStore) Path() (string, error) {
	return homedirExpand(s.path)
}

// Load implements Store.Load.
func (s FileStore) Load() (Configuration, bool, error) {
	path, err := s.Path()
	if err != nil {
		return Configuration{}, false, errors.WithContext(err, "expand config path")
	}

	cfg, err := parseConfig(path)
	if err != nil {
		if _, ok := errors.RootCause(err).(errors.FileNotFound); ok {
			return Configuration{}, false, nil
		}
		return Configuration{}, false, errors.WithContext(err, "parse")
	}
	return cfg, true, nil
}

// Save implements Store.Save.
func (s FileStore) Save(cfg Configuration) error {
	path, err := s.Path()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	cfg.Version = SupportedConfigVersion
	cfg.Projects = nil
	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

func parseConfig(path string) (Configuration, error) {
	configBytes, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return Configuration{}, errors.FileNotFound{Path: path}
		}
		return Configuration{}, errors.WithContext(err, "read file")
	}

	// Fields missing from the file keep their default value.
	config := Default()
	config.Version = InitialConfigVersion
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		return Configuration{}, errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}

	if config.Version != SupportedConfigVersion {
		return Configuration{}, incompatibleVersionError{path, SupportedConfigVersion, config.Version}
	}

	// Do a strict unmarshal to check for any extra fields. We do a non-strict
	// unmarshal first so that we can catch version errors before erroring on
	// extra fields.
	err = yaml.UnmarshalStrict(configBytes, &config, yaml.DisallowUnknownFields)
	if err != nil {
		return Configuration{}, errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}

	// Projects are never trusted from disk.
	config.Projects = []Project{}
	return config, nil
}
