package interactive

import (
	"strings"
	"unicode"

	"valuesgen-cli/internal/tree"
)

// Message is the text shown for a question
type Message struct {
	Text string
	Help string
}

// Messages maps question keys to their text
type Messages map[string]Message

// Lookup returns the message for key. Unknown keys are turned into a
// readable sentence from their last path segment.
func (m Messages) Lookup(key string) Message {
	if msg, ok := m[key]; ok {
		return msg
	}
	parts := tree.Split(strings.TrimPrefix(key, tree.TransientPrefix))
	return Message{Text: humanize(parts[len(parts)-1]), Help: key}
}

// humanize turns "consoleApiDomain" into "Console api domain"
func humanize(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
		case i > 0 && unicode.IsUpper(r):
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DefaultMessages returns the English question catalog
func DefaultMessages() Messages {
	return Messages{
		"global.consoleApiDomain":                        {"Console API domain", "Host serving the console backend API"},
		"global.consoleWebDomain":                        {"Console web domain", "Host serving the console frontend"},
		"global.serviceApiDomain":                        {"Service API domain", "Host serving the public service API"},
		"global.appApiDomain":                            {"App API domain", "Host serving the web app backend"},
		"global.appWebDomain":                            {"App web domain", "Host serving published web apps"},
		"global.filesDomain":                             {"Files domain", "Host serving uploaded files"},
		"global.enterpriseDomain":                        {"Enterprise domain", "Host serving the enterprise dashboard"},
		"global.dbMigrationEnabled":                      {"Run database migrations on startup", ""},
		"global.rag.etlType":                             {"ETL engine for document extraction", "dify uses the built-in extractor, Unstructured runs the unstructured service"},
		"global.rag.keywordDataSourceType":               {"Keyword index storage", ""},
		"global.rag.topKMaxValue":                        {"Maximum top-k for retrieval", ""},
		"global.rag.indexingMaxSegmentationTokensLength": {"Maximum segment length in tokens", ""},
		"global.useTLS":                                  {"Serve every domain over HTTPS", ""},

		"externalPostgres.enabled":                           {"Use an external PostgreSQL server", "Choose No to deploy PostgreSQL inside the release"},
		"externalPostgres.address":                           {"PostgreSQL host", ""},
		"externalPostgres.port":                              {"PostgreSQL port", ""},
		"postgresql.global.postgresql.auth.postgresPassword": {"Password for the built-in PostgreSQL", ""},

		"externalRedis.enabled":          {"Use an external Redis server", "Choose No to deploy Redis inside the release"},
		"externalRedis.host":             {"Redis host", ""},
		"externalRedis.port":             {"Redis port", ""},
		"externalRedis.useSSL":           {"Connect to Redis over TLS", ""},
		"externalRedis.password":         {"Redis password", ""},
		"externalRedis.sentinel.enabled": {"Use Redis Sentinel", ""},
		"externalRedis.cluster.enabled":  {"Use Redis Cluster", ""},
		"redis.global.redis.password":    {"Password for the built-in Redis", ""},

		"vectorDB.useExternal":      {"Use an external vector database", "Choose No to deploy Qdrant or Weaviate inside the release"},
		"vectorDB.externalType":     {"External vector database type", ""},
		"@vectorDB.builtin":         {"Built-in vector database", ""},
		"persistence.type":          {"Storage backend for uploaded files", ""},
		"@storage.provider":         {"S3 provider", "AWS S3 enables IAM integration, the others use access keys"},
		"@storage.auth":             {"AWS authentication", "IRSA uses the pod's service account, access keys are stored in the values file"},
		"persistence.s3.endpoint":   {"S3 endpoint", ""},
		"persistence.s3.region":     {"S3 region", ""},
		"persistence.s3.bucketName": {"S3 bucket name", ""},

		"ingress.className":    {"Ingress class", ""},
		"@ingress.tls":         {"Terminate TLS at the ingress", ""},
		"@ingress.hosts":       {"TLS hosts (comma separated)", ""},
		"@ingress.secretName":  {"TLS secret name", ""},
		"@ingress.certManager": {"Request certificates from cert-manager", ""},
		"ingress.annotations.cert-manager\\.io/cluster-issuer": {"cert-manager cluster issuer", ""},

		"mail.type":          {"Mail provider", "Leave empty to disable outgoing mail"},
		"mail.defaultSender": {"Default sender address", ""},

		"plugin_connector.imageRepoType":   {"Plugin image registry type", ""},
		"plugin_connector.imageRepoPrefix": {"Plugin image repository prefix", ""},
		"@plugins.ecrAccount":              {"AWS account ID for ECR", ""},
		"@plugins.ecrAuth":                 {"ECR authentication", ""},
		"@plugins.protocol":                {"Registry protocol", "HTTPS is recommended, HTTP marks the registry insecure"},

		"enterprise.licenseMode": {"License mode", ""},
		"@services.toggle":       {"Adjust which services are deployed", ""},

		"linkage.tls-ingress.repair": {"Align TLS settings now", ""},
		"output.overwrite":           {"Output file exists. Overwrite", ""},
		"output.savePartial":         {"Save the values collected so far", ""},
		"version.select":             {"Chart version", ""},
	}
}
