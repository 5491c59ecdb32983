package upnp

var (
	pUserName = in("userName", "NewUserName", typeString)
	pPassword = in("password", "NewPassword", typeString)
)

// wanPPPConnection1Actions is urn:schemas-upnp-org:service:WANPPPConnection:1
var wanPPPConnection1Actions = merge(connectionActions, actionSet{
	"ConfigureConnection": {
		params: []param{pUserName, pPassword},
	},
	"GetLinkLayerMaxBitRates":      {},
	"GetPPPEncryptionProtocol":     {},
	"GetPPPCompressionProtocol":    {},
	"GetPPPAuthenticationProtocol": {},
	"GetUserName":                  {},
	"GetPassword":                  {},
})

type wanPPPConnection1 struct{ Binding }

func (t wanPPPConnection1) Actions() map[string]ActionFunc { return t.bind(wanPPPConnection1Actions) }

func init() {
	register(forumServices+"WANPPPConnection", 1, wanPPPConnection1Actions, func(b Binding) Template { return wanPPPConnection1{b} })
}
