package modules

import (
	"context"

	"valuesgen-cli/internal/linkage"
	"valuesgen-cli/internal/session"
)

// Domain defaults offered for each public host.
var domains = []struct{ path, def string }{
	{"global.consoleApiDomain", "console.dify.local"},
	{"global.consoleWebDomain", "console.dify.local"},
	{"global.serviceApiDomain", "api.dify.local"},
	{"global.appApiDomain", "app.dify.local"},
	{"global.appWebDomain", "app.dify.local"},
	{"global.filesDomain", "files.dify.local"},
	{"global.enterpriseDomain", "enterprise.dify.local"},
}

// ConfigureGlobal sets secrets, public domains and retrieval settings.
func ConfigureGlobal(ctx context.Context, s *session.Session) error {
	s.Console.Section("Secrets")
	for _, path := range []string{"global.appSecretKey", "global.innerApiKey"} {
		if err := s.SetSecret(ctx, path, 42); err != nil {
			return err
		}
	}

	s.Console.Section("Domains")
	for _, d := range domains {
		if _, err := s.SetText(ctx, d.path, d.def); err != nil {
			return err
		}
	}

	if _, err := s.SetYesNo(ctx, "global.dbMigrationEnabled", s.Tree.Bool("global.dbMigrationEnabled", true)); err != nil {
		return err
	}

	s.Console.Section("Retrieval")
	if _, err := s.SetChoice(ctx, linkage.PathETLType,
		[]string{linkage.ETLDify, linkage.ETLUnstructured},
		s.Tree.String(linkage.PathETLType, linkage.ETLDify)); err != nil {
		return err
	}
	if _, err := s.SetChoice(ctx, "global.rag.keywordDataSourceType",
		[]string{"object_storage", "database"},
		s.Tree.String("global.rag.keywordDataSourceType", "object_storage")); err != nil {
		return err
	}
	if _, err := s.SetInt(ctx, "global.rag.topKMaxValue", 10); err != nil {
		return err
	}
	_, err := s.SetInt(ctx, "global.rag.indexingMaxSegmentationTokensLength", 4000)
	return err
}
