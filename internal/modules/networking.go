package modules

import (
	"context"
	"slices"
	"strings"

	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/linkage"
	"valuesgen-cli/internal/session"
	"valuesgen-cli/internal/tree"
)

var ingressClasses = []string{"nginx", "alb", "traefik", "istio", "other"}

var certManagerIssuer = tree.Key("ingress", "annotations", "cert-manager.io/cluster-issuer")

// ConfigureNetworking sets TLS and the ingress.
func ConfigureNetworking(ctx context.Context, s *session.Session) error {
	useTLS, err := s.SetYesNo(ctx, linkage.PathGlobalTLS, s.Tree.Bool(linkage.PathGlobalTLS, false))
	if err != nil {
		return err
	}

	s.Console.Section("Ingress")
	if err := s.Set(ctx, "ingress.enabled", true); err != nil {
		return err
	}
	class, err := s.Choice(ctx, "ingress.className", ingressClasses, defaultClass(s))
	if err != nil {
		return err
	}
	if class == "other" {
		if class, err = s.Text(ctx, "@ingress.customClass", "", interfaces.Required()); err != nil {
			return err
		}
	}
	if err := s.Set(ctx, "ingress.className", class); err != nil {
		return err
	}

	tls, err := s.YesNo(ctx, "@ingress.tls", useTLS)
	if err != nil {
		return err
	}
	if tls {
		if err := askTLSHosts(ctx, s); err != nil {
			return err
		}
	} else if err := s.Set(ctx, linkage.PathIngressTLS, []any{}); err != nil {
		return err
	}

	return s.Set(ctx, "ingress.useIpAsHost", false)
}

func defaultClass(s *session.Session) string {
	if c := s.Tree.String("ingress.className", ""); slices.Contains(ingressClasses, c) {
		return c
	}
	return "nginx"
}

// askTLSHosts collects the TLS hosts and writes a single ingress.tls entry,
// optionally requesting the certificate from cert-manager.
func askTLSHosts(ctx context.Context, s *session.Session) error {
	raw, err := s.Text(ctx, "@ingress.hosts", strings.Join(publicHosts(s), ","), interfaces.Required())
	if err != nil {
		return err
	}
	var hosts []any
	for _, h := range strings.Split(raw, ",") {
		if h = strings.TrimSpace(h); h != "" && !slices.Contains(hosts, any(h)) {
			hosts = append(hosts, h)
		}
	}
	if len(hosts) == 0 {
		return interfaces.ErrAnswerMissing
	}

	secretName, err := s.Text(ctx, "@ingress.secretName", hosts[0].(string)+"-tls")
	if err != nil {
		return err
	}
	if err := s.Set(ctx, linkage.PathIngressTLS, []any{map[string]any{
		"hosts":      hosts,
		"secretName": secretName,
	}}); err != nil {
		return err
	}

	certManager, err := s.YesNo(ctx, "@ingress.certManager", false)
	if err != nil || !certManager {
		return err
	}
	_, err = s.SetText(ctx, certManagerIssuer, "letsencrypt-prod", interfaces.Required())
	return err
}

// publicHosts lists the distinct domains configured in the global module.
func publicHosts(s *session.Session) []string {
	var out []string
	for _, d := range domains {
		if h := s.Tree.String(d.path, ""); h != "" && !slices.Contains(out, h) {
			out = append(out, h)
		}
	}
	return out
}

// ReconcileTLS handles a TLS mismatch the engine cannot fix alone: TLS is
// on globally but the ingress has no TLS hosts.
func ReconcileTLS(ctx context.Context, s *session.Session, m linkage.Mismatch) (bool, error) {
	if m.PathA != linkage.PathGlobalTLS || !linkage.Truthy(m.ValueA) || linkage.Truthy(m.ValueB) {
		return false, nil
	}
	s.Console.Info("global TLS is on, configure the ingress TLS hosts")
	if err := askTLSHosts(ctx, s); err != nil {
		return false, err
	}
	return true, nil
}
