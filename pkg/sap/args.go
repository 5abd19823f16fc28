package sap

import (
	"fmt"

	"github.com/denysvitali/wms-backend/pkg/sap/caroundtripper"
)

// Args are the command line options shared by every binary talking to SAP.
type Args struct {
	SAPURL         string `arg:"--sap-url,env:SAP_URL,required" help:"Service Layer address, e.g. https://sap.lan:50000"`
	SAPCompanyDB   string `arg:"--sap-company-db,env:SAP_COMPANY_DB,required"`
	SAPUsername    string `arg:"--sap-username,env:SAP_USERNAME,required"`
	SAPPassword    string `arg:"--sap-password,env:SAP_PASSWORD" help:"use keychain:<element> to read it from the secret service"`
	SAPCAPath      string `arg:"--sap-ca-path,env:SAP_CA_PATH" help:"PEM bundle of the CA that issued the Service Layer certificate"`
	SAPSerialQuery string `arg:"--sap-serial-query,env:SAP_SERIAL_QUERY" default:"Invoise_creation"`
}

func (a Args) NewClient() (*Client, error) {
	c, err := New(Config{
		URL:         a.SAPURL,
		CompanyDB:   a.SAPCompanyDB,
		Username:    a.SAPUsername,
		Password:    a.SAPPassword,
		SerialQuery: a.SAPSerialQuery,
	})
	if err != nil {
		return nil, err
	}
	if a.SAPCAPath != "" {
		rt, err := caroundtripper.New(a.SAPCAPath)
		if err != nil {
			return nil, fmt.Errorf("sap ca: %w", err)
		}
		c.SetHttpTransport(rt)
	}
	return c, nil
}
