// Package config describes a tabflow run in YAML.
//
// A RunConfig names the source type and its partition identifiers, the
// destination type and schema, the output sink and the observability
// settings. Values of the form ${VAR_NAME} are replaced with environment
// variables before parsing.
//
// # Usage
//
//	var cfg config.RunConfig
//	if err := config.Load("run.yaml", &cfg); err != nil {
//		log.Fatal(err)
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//	schema, _ := cfg.Schema()
//
// # Environment Variable Substitution
//
//	source:
//	  type: postgres
//	  connection_string: ${PG_URL}
package config
