package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ ConnectorRegistry = (*ConnectorCatalog)(nil)
	_ ConfigProvider    = (*CfgxConfigProvider)(nil)
	_ OptionsResolver   = GoOptionsResolver{}
	_ RawConfigLoader   = StaticRawConfigLoader{}
	_ ConnectorConfig   = AWSConnectorConfig{}
	_ ConnectorConfig   = GitHubConnectorConfig{}
	_ ConnectorConfig   = OktaConnectorConfig{}
	_ ConnectorConfig   = JiraConnectorConfig{}
	_ ConnectorConfig   = GenericConnectorConfig{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
