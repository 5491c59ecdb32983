package upnp

// wanCommonInterfaceConfig1Actions is
// urn:schemas-upnp-org:service:WANCommonInterfaceConfig:1
var wanCommonInterfaceConfig1Actions = actionSet{
	"SetEnabledForInternet": {
		params: []param{in("enabledForInternet", "NewEnabledForInternet", typeBoolean)},
	},
	"GetEnabledForInternet":       {},
	"GetCommonLinkProperties":     {},
	"GetWANAccessProvider":        {},
	"GetMaximumActiveConnections": {},
	"GetTotalBytesSent":           {},
	"GetTotalBytesReceived":       {},
	"GetTotalPacketsSent":         {},
	"GetTotalPacketsReceived":     {},
	"GetActiveConnection": {
		params: []param{in("activeConnectionIndex", "NewActiveConnectionIndex", typeUI2)},
	},
}

type wanCommonInterfaceConfig1 struct{ Binding }

func (t wanCommonInterfaceConfig1) Actions() map[string]ActionFunc {
	return t.bind(wanCommonInterfaceConfig1Actions)
}

func init() {
	register(forumServices+"WANCommonInterfaceConfig", 1, wanCommonInterfaceConfig1Actions,
		func(b Binding) Template { return wanCommonInterfaceConfig1{b} })
}
