package git

import (
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/docblog/internal/config"
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
)

// authMethod returns the go-git transport credentials for cfg; nil means
// anonymous access.
func authMethod(cfg *config.AuthConfig) (transport.AuthMethod, error) {
	if cfg == nil {
		return nil, nil
	}
	switch cfg.Type {
	case config.AuthTypeNone, "":
		return nil, nil
	case config.AuthTypeToken:
		if cfg.Token == "" {
			return nil, errors.GitError("token authentication requires a token").UserAction().Build()
		}
		// Most forges accept any username alongside a token.
		return &http.BasicAuth{Username: "token", Password: cfg.Token}, nil
	case config.AuthTypeBasic:
		if cfg.Username == "" || cfg.Password == "" {
			return nil, errors.GitError("basic authentication requires username and password").UserAction().Build()
		}
		return &http.BasicAuth{Username: cfg.Username, Password: cfg.Password}, nil
	case config.AuthTypeSSH:
		keyPath := cfg.KeyPath
		if keyPath == "" {
			keyPath = filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa")
		}
		keys, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryGit, "load SSH key").
				WithContext("path", keyPath).
				Build()
		}
		return keys, nil
	default:
		return nil, errors.GitError("unsupported authentication type").
			WithContext("type", string(cfg.Type)).
			UserAction().
			Build()
	}
}
