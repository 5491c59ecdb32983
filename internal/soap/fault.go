package soap

import (
	"fmt"

	goupnpsoap "github.com/huin/goupnp/soap"
)

// FaultError is a SOAP fault returned by a device in place of an action response
type FaultError struct {
	// Code is the UPnP error code from <UPnPError><errorCode> (e.g., 718)
	Code int

	// Description is the UPnP error description (e.g., "ConflictInMappingEntry")
	Description string

	// FaultCode and FaultString are the generic SOAP fault fields
	FaultCode   string
	FaultString string
}

func newFaultError(f *goupnpsoap.SOAPFaultError) *FaultError {
	return &FaultError{
		Code:        f.Detail.UPnPError.Errorcode,
		Description: f.Detail.UPnPError.ErrorDescription,
		FaultCode:   f.FaultCode,
		FaultString: f.FaultString,
	}
}

// Error implements the error interface
func (e *FaultError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("SOAP fault %d: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("SOAP fault %d: %s", e.Code, e.FaultString)
}
