package modules

import (
	"context"
	"fmt"

	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/linkage"
	"valuesgen-cli/internal/session"
	"valuesgen-cli/internal/tree"
	"valuesgen-cli/internal/version"
)

// ConfigureInfrastructure covers the database, cache, vector store and
// object storage.
func ConfigureInfrastructure(ctx context.Context, s *session.Session) error {
	steps := []struct {
		title string
		run   func(context.Context, *session.Session) error
	}{
		{"PostgreSQL", configurePostgres},
		{"Redis", configureRedis},
		{"Vector database", configureVectorDB},
		{"Storage", configureStorage},
	}
	for _, step := range steps {
		s.Console.Section(step.title)
		if err := step.run(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Databases that get their own credentials on an external server.
var postgresDatabases = []struct{ key, name string }{
	{"dify", "dify"},
	{"plugin_daemon", "dify_plugin_daemon"},
	{"enterprise", "enterprise"},
	{"audit", "audit"},
}

var sslModes = []string{"disable", "require", "verify-ca", "verify-full"}

func configurePostgres(ctx context.Context, s *session.Session) error {
	external, err := s.SetYesNo(ctx, linkage.PathExternalPostgres, true)
	if err != nil {
		return err
	}
	if !external {
		if _, err := s.SetYesNo(ctx, linkage.PathBuiltinPostgres, true); err != nil {
			return err
		}
		return secretOrAnswer(ctx, s, "postgresql.global.postgresql.auth.postgresPassword", 32)
	}

	if err := setTexts(ctx, s, text("externalPostgres.address", "host.docker.internal", interfaces.Required())); err != nil {
		return err
	}
	if _, err := s.SetInt(ctx, "externalPostgres.port", 5432); err != nil {
		return err
	}

	for _, db := range postgresDatabases {
		if db.key == "plugin_daemon" && !s.Supports(version.ModulePlugins) {
			continue
		}
		base := "externalPostgres.credentials." + db.key + "."
		if err := setTexts(ctx, s,
			text(base+"database", db.name),
			text(base+"username", "postgres"),
			text(base+"password", "", interfaces.Required(), interfaces.Sensitive()),
		); err != nil {
			return err
		}
		if _, err := s.SetChoice(ctx, base+"sslmode", sslModes, s.Tree.String(base+"sslmode", "require")); err != nil {
			return err
		}
		for _, fixed := range []struct{ key, value string }{
			{"extras", ""},
			{"charset", ""},
			{"uriScheme", "postgresql"},
		} {
			if err := s.Set(ctx, base+fixed.key, s.Tree.String(base+fixed.key, fixed.value)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Redis topologies offered for an external server.
const (
	redisStandalone = "standalone"
	redisSentinel   = "sentinel"
	redisCluster    = "cluster"
)

func configureRedis(ctx context.Context, s *session.Session) error {
	external, err := s.SetYesNo(ctx, linkage.PathExternalRedis, true)
	if err != nil {
		return err
	}
	if !external {
		if _, err := s.SetYesNo(ctx, linkage.PathBuiltinRedis, true); err != nil {
			return err
		}
		return secretOrAnswer(ctx, s, "redis.global.redis.password", 32)
	}

	topology, err := s.Choice(ctx, "@redis.topology", []string{redisStandalone, redisSentinel, redisCluster}, redisStandalone)
	if err != nil {
		return err
	}

	switch topology {
	case redisSentinel:
		if err := s.Set(ctx, linkage.PathRedisSentinel, true); err != nil {
			return err
		}
		if err := setTexts(ctx, s,
			text("externalRedis.sentinel.nodes", "", interfaces.Required()),
			text("externalRedis.sentinel.serviceName", "mymaster"),
			text("externalRedis.sentinel.username", ""),
			text("externalRedis.sentinel.password", "", interfaces.Sensitive()),
		); err != nil {
			return err
		}
		timeout, err := s.Float(ctx, "externalRedis.sentinel.socketTimeout", 0.1)
		if err != nil {
			return err
		}
		return s.Set(ctx, "externalRedis.sentinel.socketTimeout", timeout)

	case redisCluster:
		if err := s.Set(ctx, linkage.PathRedisCluster, true); err != nil {
			return err
		}
		return setTexts(ctx, s,
			text("externalRedis.cluster.nodes", "", interfaces.Required()),
			text("externalRedis.cluster.password", "", interfaces.Sensitive()),
		)
	}

	for _, p := range []string{linkage.PathRedisSentinel, linkage.PathRedisCluster} {
		if s.Tree.Has(p) {
			if err := s.Set(ctx, p, false); err != nil {
				return err
			}
		}
	}
	if err := setTexts(ctx, s, text("externalRedis.host", "host.docker.internal", interfaces.Required())); err != nil {
		return err
	}
	if _, err := s.SetInt(ctx, "externalRedis.port", 6379); err != nil {
		return err
	}
	if _, err := s.SetYesNo(ctx, "externalRedis.useSSL", s.Tree.Bool("externalRedis.useSSL", false)); err != nil {
		return err
	}
	if err := setTexts(ctx, s,
		text("externalRedis.username", ""),
		text("externalRedis.password", "", interfaces.Sensitive()),
	); err != nil {
		return err
	}
	_, err = s.SetInt(ctx, "externalRedis.db", 0)
	return err
}

// External vector databases the chart can connect to.
var vectorDBTypes = []string{
	"qdrant", "weaviate", "milvus", "relyt", "pgvecto-rs",
	"tencent", "opensearch", "elasticsearch", "analyticdb", "lindorm",
}

func configureVectorDB(ctx context.Context, s *session.Session) error {
	external, err := s.SetYesNo(ctx, linkage.PathExternalVectorDB, s.Tree.Bool(linkage.PathExternalVectorDB, false))
	if err != nil {
		return err
	}

	if !external {
		builtin, err := s.Choice(ctx, "@vectorDB.builtin", []string{"qdrant", "weaviate"}, "qdrant")
		if err != nil {
			return err
		}
		if builtin == "weaviate" {
			return s.Set(ctx, linkage.PathWeaviateEnabled, true)
		}
		if err := s.Set(ctx, linkage.PathQdrantEnabled, true); err != nil {
			return err
		}
		if err := setTexts(ctx, s, text("qdrant.apiKey", "dify123456", interfaces.Sensitive())); err != nil {
			return err
		}
		_, err = s.SetInt(ctx, "qdrant.replicaCount", 3)
		return err
	}

	typ, err := s.SetChoice(ctx, "vectorDB.externalType", vectorDBTypes, s.Tree.String("vectorDB.externalType", "qdrant"))
	if err != nil {
		return err
	}
	switch typ {
	case "qdrant":
		return setTexts(ctx, s,
			text("vectorDB.externalQdrant.endpoint", "http://host.docker.internal:6333", interfaces.Required()),
			text("vectorDB.externalQdrant.apiKey", "", interfaces.Sensitive()),
		)
	case "weaviate":
		return setTexts(ctx, s,
			text("vectorDB.externalWeaviate.endpoint", "http://weaviate:8080", interfaces.Required()),
			text("vectorDB.externalWeaviate.apiKey", "", interfaces.Sensitive()),
		)
	case "milvus":
		return setTexts(ctx, s,
			text("vectorDB.externalMilvus.uri", "http://host.docker.internal:19530", interfaces.Required()),
			text("vectorDB.externalMilvus.user", ""),
			text("vectorDB.externalMilvus.password", "", interfaces.Sensitive()),
		)
	case "opensearch", "elasticsearch":
		base := "vectorDB.external" + map[string]string{"opensearch": "OpenSearch", "elasticsearch": "Elasticsearch"}[typ] + "."
		if err := setTexts(ctx, s, text(base+"host", "", interfaces.Required())); err != nil {
			return err
		}
		if _, err := s.SetInt(ctx, base+"port", 9200); err != nil {
			return err
		}
		return setTexts(ctx, s,
			text(base+"username", ""),
			text(base+"password", "", interfaces.Sensitive()),
		)
	}
	s.Console.Info(fmt.Sprintf("fill in the vectorDB settings for %s in the generated file", typ))
	return nil
}

var storageTypes = []string{
	"local", linkage.StorageS3, "azure-blob", "aliyun-oss",
	"google-storage", "tencent-cos", "volcengine-tos", "huawei-obs",
}

// Credential fields asked for each non-S3 cloud storage type.
var cloudStorage = map[string][]field{
	"azure-blob": {
		text("persistence.azureBlob.accountName", "", interfaces.Required()),
		text("persistence.azureBlob.accountKey", "", interfaces.Required(), interfaces.Sensitive()),
		text("persistence.azureBlob.containerName", "", interfaces.Required()),
		text("persistence.azureBlob.accountUrl", ""),
	},
	"aliyun-oss": {
		text("persistence.aliyunOss.endpoint", "", interfaces.Required()),
		text("persistence.aliyunOss.bucketName", "", interfaces.Required()),
		text("persistence.aliyunOss.accessKey", "", interfaces.Required()),
		text("persistence.aliyunOss.secretKey", "", interfaces.Required(), interfaces.Sensitive()),
		text("persistence.aliyunOss.region", ""),
	},
	"google-storage": {
		text("persistence.googleStorage.bucketName", "", interfaces.Required()),
		text("persistence.googleStorage.serviceAccountJsonBase64", "", interfaces.Sensitive()),
	},
	"tencent-cos": {
		text("persistence.tencentCos.bucketName", "", interfaces.Required()),
		text("persistence.tencentCos.secretId", "", interfaces.Required()),
		text("persistence.tencentCos.secretKey", "", interfaces.Required(), interfaces.Sensitive()),
		text("persistence.tencentCos.region", "", interfaces.Required()),
		text("persistence.tencentCos.scheme", "https"),
	},
	"volcengine-tos": {
		text("persistence.volcengineTos.bucketName", "", interfaces.Required()),
		text("persistence.volcengineTos.accessKey", "", interfaces.Required()),
		text("persistence.volcengineTos.secretKey", "", interfaces.Required(), interfaces.Sensitive()),
		text("persistence.volcengineTos.endpoint", "", interfaces.Required()),
		text("persistence.volcengineTos.region", "", interfaces.Required()),
	},
	"huawei-obs": {
		text("persistence.huaweiObs.bucketName", "", interfaces.Required()),
		text("persistence.huaweiObs.accessKey", "", interfaces.Required()),
		text("persistence.huaweiObs.secretKey", "", interfaces.Required(), interfaces.Sensitive()),
		text("persistence.huaweiObs.server", "", interfaces.Required()),
	},
}

// AWS authentication modes for S3.
const (
	awsAuthIRSA = "IRSA"
	awsAuthKeys = "Access keys"
)

func configureStorage(ctx context.Context, s *session.Session) error {
	typ, err := s.SetChoice(ctx, linkage.PathStorageType, storageTypes, s.Tree.String(linkage.PathStorageType, "local"))
	if err != nil {
		return err
	}

	switch typ {
	case "local":
		err = setTexts(ctx, s,
			text("persistence.local.mountPath", "/app/api/storage"),
			text("persistence.local.storageClass", ""),
			text("persistence.local.size", "5Gi"),
		)
	case linkage.StorageS3:
		err = configureS3(ctx, s)
	default:
		err = setTexts(ctx, s, cloudStorage[typ]...)
	}
	if err != nil {
		return err
	}

	if s.Tree.Bool(linkage.PathMinioEnabled, false) {
		s.Console.Section("Built-in MinIO")
		if err := setTexts(ctx, s, text("minio.rootUser", "minioadmin")); err != nil {
			return err
		}
		return s.SetSecret(ctx, "minio.rootPassword", 32)
	}
	return nil
}

func configureS3(ctx context.Context, s *session.Session) error {
	provider, err := s.Choice(ctx, linkage.PathStorageProvider, linkage.S3Providers, linkage.ProviderAWSS3)
	if err != nil {
		return err
	}
	if err := s.Set(ctx, linkage.PathStorageProvider, provider); err != nil {
		return err
	}

	endpoints := map[string]string{
		linkage.ProviderAWSS3:        "https://s3.us-east-1.amazonaws.com",
		linkage.ProviderMinIO:        "http://host.docker.internal:9000",
		linkage.ProviderCloudflareR2: "https://xxx.r2.cloudflarestorage.com",
	}
	if err := setTexts(ctx, s,
		text("persistence.s3.endpoint", endpoints[provider], interfaces.Required()),
		text("persistence.s3.region", "us-east-1"),
		text("persistence.s3.bucketName", "", interfaces.Required()),
	); err != nil {
		return err
	}

	if provider != linkage.ProviderAWSS3 {
		if err := s.Set(ctx, "persistence.s3.useAwsManagedIam", false); err != nil {
			return err
		}
		accessKey, secretKey := "", ""
		if provider == linkage.ProviderMinIO {
			accessKey, secretKey = "minioadmin", "minioadmin123"
		}
		if err := setTexts(ctx, s,
			text("persistence.s3.accessKey", accessKey, interfaces.Required()),
			text("persistence.s3.secretKey", secretKey, interfaces.Required(), interfaces.Sensitive()),
		); err != nil {
			return err
		}
		addressing := "virtual"
		if provider == linkage.ProviderMinIO {
			addressing = "path"
		}
		_, err := s.SetChoice(ctx, "persistence.s3.addressType", []string{"virtual", "path"}, addressing)
		return err
	}

	auth, err := s.Choice(ctx, "@storage.auth", []string{awsAuthIRSA, awsAuthKeys}, awsAuthIRSA)
	if err != nil {
		return err
	}
	if auth == awsAuthKeys {
		if err := s.Set(ctx, "persistence.s3.useAwsManagedIam", false); err != nil {
			return err
		}
		return setTexts(ctx, s,
			text("persistence.s3.accessKey", "", interfaces.Required()),
			text("persistence.s3.secretKey", "", interfaces.Required(), interfaces.Sensitive()),
		)
	}

	if err := s.Set(ctx, "persistence.s3.useAwsManagedIam", true); err != nil {
		return err
	}
	for _, svc := range []string{"api", "worker"} {
		if err := setTexts(ctx, s, text(tree.Key(svc, "serviceAccountName"), "", interfaces.Required())); err != nil {
			return err
		}
	}
	for _, p := range []string{"persistence.s3.accessKey", "persistence.s3.secretKey"} {
		if err := s.Delete(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
