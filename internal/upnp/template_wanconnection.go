package upnp

// Parameters shared by the WANIPConnection and WANPPPConnection services.
var (
	pRemoteHost     = in("remoteHost", "NewRemoteHost", typeString).or("")
	pExternalPort   = in("externalPort", "NewExternalPort", typeUI2)
	pProtocol       = in("protocol", "NewProtocol", typeString)
	pInternalPort   = in("internalPort", "NewInternalPort", typeUI2)
	pInternalClient = in("internalClient", "NewInternalClient", typeString)
	pEnabled        = in("enabled", "NewEnabled", typeBoolean).or(true)
	pDescription    = in("description", "NewPortMappingDescription", typeString).or("")
	pLeaseDuration  = in("leaseDuration", "NewLeaseDuration", typeUI4).or(0)
	pMappingIndex   = in("index", "NewPortMappingIndex", typeUI2)
	pConnectionType = in("connectionType", "NewConnectionType", typeString)
	pAutoDisconnect = in("autoDisconnectTime", "NewAutoDisconnectTime", typeUI4)
	pIdleDisconnect = in("idleDisconnectTime", "NewIdleDisconnectTime", typeUI4)
	pWarnDelay      = in("warnDisconnectDelay", "NewWarnDisconnectDelay", typeUI4)
)

// connectionActions are the connection-management and port-mapping actions
// common to version 1 of both WAN connection services
var connectionActions = actionSet{
	"SetConnectionType":      {params: []param{pConnectionType}},
	"GetConnectionTypeInfo":  {},
	"RequestConnection":      {},
	"RequestTermination":     {},
	"ForceTermination":       {},
	"SetAutoDisconnectTime":  {params: []param{pAutoDisconnect}},
	"SetIdleDisconnectTime":  {params: []param{pIdleDisconnect}},
	"SetWarnDisconnectDelay": {params: []param{pWarnDelay}},
	"GetStatusInfo":          {},
	"GetAutoDisconnectTime":  {},
	"GetIdleDisconnectTime":  {},
	"GetWarnDisconnectDelay": {},
	"GetNATRSIPStatus":       {},
	"GetGenericPortMappingEntry": {
		params: []param{pMappingIndex},
	},
	"GetSpecificPortMappingEntry": {
		params: []param{pRemoteHost, pExternalPort, pProtocol},
	},
	"AddPortMapping": {
		params: []param{
			pRemoteHost, pExternalPort, pProtocol, pInternalPort,
			pInternalClient, pEnabled, pDescription, pLeaseDuration,
		},
	},
	"DeletePortMapping": {
		params: []param{pRemoteHost, pExternalPort, pProtocol},
	},
	"GetExternalIPAddress": {},
}
