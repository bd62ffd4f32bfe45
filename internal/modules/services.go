package modules

import (
	"context"

	"valuesgen-cli/internal/session"
	"valuesgen-cli/internal/version"
)

// Services that can be switched off individually.
var toggles = []string{
	"api", "worker", "workerBeat", "web", "sandbox",
	"enterprise", "enterpriseAudit", "enterpriseFrontend",
	"ssrfProxy", "unstructured", "plugin_daemon", "plugin_manager",
}

var pluginServices = map[string]bool{"plugin_daemon": true, "plugin_manager": true}

// ConfigureServices sets enterprise secrets and licensing while the
// enterprise service is enabled, then which services are deployed.
func ConfigureServices(ctx context.Context, s *session.Session) error {
	if s.Tree.Bool("enterprise.enabled", true) {
		if err := configureEnterprise(ctx, s); err != nil {
			return err
		}
	}

	adjust, err := s.YesNo(ctx, "@services.toggle", false)
	if err != nil || !adjust {
		return err
	}
	s.Console.Section("Deployed services")
	for _, svc := range toggles {
		if pluginServices[svc] && !s.Supports(version.ModulePlugins) {
			continue
		}
		path := svc + ".enabled"
		if _, err := s.SetYesNo(ctx, path, s.Tree.Bool(path, true)); err != nil {
			return err
		}
	}
	return nil
}

func configureEnterprise(ctx context.Context, s *session.Session) error {
	s.Console.Section("Enterprise")
	for _, sec := range []struct {
		path   string
		length int
	}{
		{"enterprise.appSecretKey", 42},
		{"enterprise.adminAPIsSecretKeySalt", 42},
		{"enterprise.passwordEncryptionKey", 32},
	} {
		if err := s.SetSecret(ctx, sec.path, sec.length); err != nil {
			return err
		}
	}

	mode, err := s.SetChoice(ctx, "enterprise.licenseMode", []string{"online", "offline"}, s.Tree.String("enterprise.licenseMode", "online"))
	if err != nil {
		return err
	}
	if mode == "online" {
		if err := s.Set(ctx, "enterprise.licenseServer", "https://licenses.dify.ai/server"); err != nil {
			return err
		}
	}
	return nil
}
