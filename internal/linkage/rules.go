package linkage

import (
	"valuesgen-cli/internal/tree"
	"valuesgen-cli/internal/version"
)

// Paths the built-in rules read and write.
const (
	PathETLType             = "global.rag.etlType"
	PathUnstructuredEnabled = "unstructured.enabled"

	PathExternalPostgres = "externalPostgres.enabled"
	PathBuiltinPostgres  = "postgresql.enabled"
	PathExternalRedis    = "externalRedis.enabled"
	PathBuiltinRedis     = "redis.enabled"
	PathRedisSentinel    = "externalRedis.sentinel.enabled"
	PathRedisCluster     = "externalRedis.cluster.enabled"
	PathExternalVectorDB = "vectorDB.useExternal"
	PathQdrantEnabled    = "qdrant.enabled"
	PathWeaviateEnabled  = "weaviate.enabled"

	PathStorageType     = "persistence.type"
	PathStorageUseAWS   = "persistence.s3.useAwsS3"
	PathMinioEnabled    = "minio.enabled"
	PathStorageProvider = tree.TransientPrefix + "storage.provider"

	PathGlobalTLS  = "global.useTLS"
	PathIngressTLS = "ingress.tls"
)

// ETL engines.
const (
	ETLDify         = "dify"
	ETLUnstructured = "Unstructured"
)

// S3 providers offered for persistence.type = s3.
const (
	ProviderAWSS3        = "AWS S3"
	ProviderMinIO        = "MinIO"
	ProviderCloudflareR2 = "Cloudflare R2"
	ProviderOtherS3      = "Other S3 compatible"
)

// StorageS3 is the persistence.type value that enables S3 providers.
const StorageS3 = "s3"

// S3Providers lists the provider choices in prompt order.
var S3Providers = []string{ProviderAWSS3, ProviderMinIO, ProviderCloudflareR2, ProviderOtherS3}

// DefaultRules returns the relationships between chart values that the
// generator keeps in line while answers are collected.
func DefaultRules() RuleSet {
	return RuleSet{
		Derivations: []Derivation{
			{
				Name:     "etl-engine",
				Triggers: []string{PathETLType},
				Derive: func(get Getter) []Assignment {
					v, _ := get(PathETLType)
					switch v {
					case ETLDify:
						return []Assignment{{Path: PathUnstructuredEnabled, Value: false}}
					case ETLUnstructured:
						return []Assignment{{Path: PathUnstructuredEnabled, Value: true}}
					}
					return nil
				},
			},
			{
				Name:     "storage-provider",
				Triggers: []string{PathStorageType, PathStorageProvider},
				Derive: func(get Getter) []Assignment {
					typ, _ := get(PathStorageType)
					provider, _ := get(PathStorageProvider)
					aws := typ == StorageS3 && provider == ProviderAWSS3
					return []Assignment{
						{Path: PathStorageUseAWS, Value: aws},
						{Path: PathMinioEnabled, Value: !aws},
					}
				},
			},
		},
		Exclusions: []Exclusion{
			{Name: "postgres-source", Members: []string{PathExternalPostgres, PathBuiltinPostgres}},
			{Name: "redis-source", Members: []string{PathExternalRedis, PathBuiltinRedis}},
			{Name: "redis-topology", Members: []string{PathRedisSentinel, PathRedisCluster}},
			{Name: "vector-store", Members: []string{PathExternalVectorDB, PathQdrantEnabled, PathWeaviateEnabled}},
		},
		Consistencies: []Consistency{
			{
				Name:       "tls-ingress",
				Module:     version.ModuleNetworking,
				PathA:      PathGlobalTLS,
				PathB:      PathIngressTLS,
				Suggestion: "global.useTLS and ingress.tls should agree: enable TLS globally or configure ingress TLS hosts",
				Repair: func(a, b any) []Assignment {
					if Truthy(b) && !Truthy(a) {
						return []Assignment{{Path: PathGlobalTLS, Value: true}}
					}
					return nil
				},
			},
		},
	}
}

// NewDefaultEngine builds an engine over DefaultRules.
func NewDefaultEngine(opts ...Option) *Engine {
	e, err := NewEngine(DefaultRules(), opts...)
	if err != nil {
		panic(err)
	}
	return e
}
