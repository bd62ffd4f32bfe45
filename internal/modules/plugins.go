package modules

import (
	"context"
	"fmt"

	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/session"
)

const (
	repoDocker = "docker"
	repoECR    = "ecr"

	ecrAuthIRSA   = "IRSA"
	ecrAuthSecret = "Kubernetes secret"

	protocolHTTPS = "HTTPS"
	protocolHTTP  = "HTTP"
)

// ConfigurePlugins sets where plugin images are pushed and pulled.
func ConfigurePlugins(ctx context.Context, s *session.Session) error {
	const base = "plugin_connector."

	repoType, err := s.SetChoice(ctx, base+"imageRepoType", []string{repoDocker, repoECR}, s.Tree.String(base+"imageRepoType", repoDocker))
	if err != nil {
		return err
	}

	if repoType == repoECR {
		region, err := s.SetText(ctx, base+"ecrRegion", "us-east-1", interfaces.Required())
		if err != nil {
			return err
		}
		account, err := s.Text(ctx, "@plugins.ecrAccount", "", interfaces.Required())
		if err != nil {
			return err
		}
		prefix := fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com", account, region)
		if _, err := s.SetText(ctx, base+"imageRepoPrefix", prefix, interfaces.Required()); err != nil {
			return err
		}

		auth, err := s.Choice(ctx, "@plugins.ecrAuth", []string{ecrAuthIRSA, ecrAuthSecret}, ecrAuthIRSA)
		if err != nil {
			return err
		}
		if auth == ecrAuthIRSA {
			if err := setTexts(ctx, s,
				text(base+"customServiceAccount", "", interfaces.Required()),
				text(base+"runnerServiceAccount", "", interfaces.Required()),
			); err != nil {
				return err
			}
			if err := s.Delete(ctx, base+"imageRepoSecret"); err != nil {
				return err
			}
		} else if err := setTexts(ctx, s, text(base+"imageRepoSecret", "image-repo-secret")); err != nil {
			return err
		}
	} else if err := setTexts(ctx, s,
		text(base+"imageRepoPrefix", "docker.io/your-image-repo-prefix", interfaces.Required()),
		text(base+"imageRepoSecret", "image-repo-secret"),
	); err != nil {
		return err
	}

	protocol, err := s.Choice(ctx, "@plugins.protocol", []string{protocolHTTPS, protocolHTTP}, protocolHTTPS)
	if err != nil {
		return err
	}
	return s.Set(ctx, base+"insecureImageRepo", protocol == protocolHTTP)
}
