package upnp

var (
	pStartPort     = in("startPort", "NewStartPort", typeUI2)
	pEndPort       = in("endPort", "NewEndPort", typeUI2)
	pManage        = in("manage", "NewManage", typeBoolean).or(false)
	pNumberOfPorts = in("numberOfPorts", "NewNumberOfPorts", typeUI2).or(0)
)

// wanIPConnection1Actions is urn:schemas-upnp-org:service:WANIPConnection:1
var wanIPConnection1Actions = merge(connectionActions)

// wanIPConnection2Actions adds the range operations and AddAnyPortMapping
var wanIPConnection2Actions = merge(wanIPConnection1Actions, actionSet{
	"DeletePortMappingRange": {
		params: []param{pStartPort, pEndPort, pProtocol, pManage},
	},
	"GetListOfPortMappings": {
		params: []param{pStartPort, pEndPort, pProtocol, pManage, pNumberOfPorts},
	},
	"AddAnyPortMapping": {
		params: []param{
			pRemoteHost, pExternalPort, pProtocol, pInternalPort,
			pInternalClient, pEnabled, pDescription, pLeaseDuration,
		},
	},
})

type wanIPConnection1 struct{ Binding }

func (t wanIPConnection1) Actions() map[string]ActionFunc { return t.bind(wanIPConnection1Actions) }

type wanIPConnection2 struct{ Binding }

func (t wanIPConnection2) Actions() map[string]ActionFunc { return t.bind(wanIPConnection2Actions) }

func init() {
	register(forumServices+"WANIPConnection", 1, wanIPConnection1Actions, func(b Binding) Template { return wanIPConnection1{b} })
	register(forumServices+"WANIPConnection", 2, wanIPConnection2Actions, func(b Binding) Template { return wanIPConnection2{b} })
}
