package sap_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/h2non/gock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/wms-backend/pkg/apperr"
	"github.com/denysvitali/wms-backend/pkg/models"
	"github.com/denysvitali/wms-backend/pkg/sap"
)

const sapAddr = "https://sap.lan:50000"

func TestMain(m *testing.M) {
	logrus.StandardLogger().SetLevel(logrus.DebugLevel)
	os.Exit(m.Run())
}

func getClient(t *testing.T) *sap.Client {
	c, err := sap.New(sap.Config{
		URL:       sapAddr,
		CompanyDB: "SBODEMO",
		Username:  "manager",
		Password:  "secret",
	})
	require.NoError(t, err)
	return c
}

func mockLogin(times int) {
	gock.New(sapAddr).
		Post("/b1s/v1/Login").
		MatchType("json").
		JSON(map[string]string{"CompanyDB": "SBODEMO", "UserName": "manager", "Password": "secret"}).
		Times(times).
		Reply(http.StatusOK).
		SetHeader("Set-Cookie", "B1SESSION=abc; Path=/b1s").
		JSON(map[string]any{"SessionId": "abc", "Version": "1000", "SessionTimeout": 30})
}

func TestNewRejectsScheme(t *testing.T) {
	_, err := sap.New(sap.Config{URL: "ftp://sap.lan"})
	assert.Error(t, err)
}

func TestLookupSerial(t *testing.T) {
	defer gock.Off()
	mockLogin(1)
	gock.New(sapAddr).
		Post("/b1s/v1/SQLQueries.+/List").
		MatchType("json").
		JSON(map[string]string{"ParamList": "serial_number='SN1'"}).
		Reply(http.StatusOK).
		JSON(map[string]any{
			"value": []map[string]any{
				{"ItemCode": "ITM-A", "itemName": "Widget", "DistNumber": "SN1", "WhsCode": "WH1", "WhsName": "Main", "BPLid": 1, "BPLName": "North"},
				{"ItemCode": "ITM-A", "itemName": "Widget", "DistNumber": "SN1", "WhsCode": "WH2", "WhsName": "Spare", "BPLid": 1, "BPLName": "North"},
			},
		})

	c := getClient(t)
	records, err := c.LookupSerial(context.Background(), "SN1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ITM-A", records[0].ItemCode)
	assert.Equal(t, "WH1", records[0].WarehouseCode)
	assert.Equal(t, models.BranchID(1), records[0].BranchID)
	assert.Contains(t, string(records[0].Raw), `"WhsName":"Main"`)
	assert.True(t, gock.IsDone())
}

func TestLookupSerialEscapesQuotes(t *testing.T) {
	defer gock.Off()
	mockLogin(1)
	gock.New(sapAddr).
		Post("/b1s/v1/SQLQueries.+/List").
		MatchType("json").
		JSON(map[string]string{"ParamList": "serial_number='SN''1'"}).
		Reply(http.StatusOK).
		JSON(map[string]any{"value": []any{}})

	records, err := getClient(t).LookupSerial(context.Background(), "SN'1")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.True(t, gock.IsDone())
}

func TestLookupSerialRejected(t *testing.T) {
	defer gock.Off()
	mockLogin(1)
	gock.New(sapAddr).
		Post("/b1s/v1/SQLQueries.+/List").
		Reply(http.StatusBadRequest).
		BodyString(`{"error":{"code":-1,"message":{"lang":"en-us","value":"Invalid query"}}}`)

	_, err := getClient(t).LookupSerial(context.Background(), "SN1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.RemoteRejected))
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.False(t, e.Retryable())
}

func TestLookupSerialServerErrorIsRetryable(t *testing.T) {
	defer gock.Off()
	mockLogin(1)
	gock.New(sapAddr).
		Post("/b1s/v1/SQLQueries.+/List").
		Reply(http.StatusServiceUnavailable).
		BodyString("Service Unavailable")

	_, err := getClient(t).LookupSerial(context.Background(), "SN1")
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, e.Status)
	assert.True(t, e.Retryable())
}

func TestLookupSerialInvalidRow(t *testing.T) {
	defer gock.Off()
	mockLogin(1)
	gock.New(sapAddr).
		Post("/b1s/v1/SQLQueries.+/List").
		Reply(http.StatusOK).
		JSON(map[string]any{"value": []map[string]any{{"itemName": "Widget"}}})

	_, err := getClient(t).LookupSerial(context.Background(), "SN1")
	assert.True(t, errors.Is(err, apperr.RemoteRejected))
}

func TestLookupSerialUnavailable(t *testing.T) {
	defer gock.Off()
	mockLogin(1)
	gock.New(sapAddr).
		Post("/b1s/v1/SQLQueries.+/List").
		ReplyError(errors.New("connection refused"))

	_, err := getClient(t).LookupSerial(context.Background(), "SN1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.RemoteUnavailable))
	e, _ := apperr.As(err)
	assert.True(t, e.Retryable())
}

func TestLoginFailed(t *testing.T) {
	defer gock.Off()
	gock.New(sapAddr).
		Post("/b1s/v1/Login").
		Reply(http.StatusUnauthorized).
		BodyString(`{"error":{"code":100000027,"message":{"lang":"en-us","value":"Login failed"}}}`)

	err := getClient(t).Login(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.RemoteRejected))
	assert.Contains(t, err.Error(), "Login failed")
}

func TestSessionExpiredLogsInAgain(t *testing.T) {
	defer gock.Off()
	mockLogin(2)
	gock.New(sapAddr).
		Get("/b1s/v1/BusinessPartners").
		Reply(http.StatusUnauthorized).
		BodyString(`{"error":{"code":301,"message":{"lang":"en-us","value":"Invalid session."}}}`)
	gock.New(sapAddr).
		Get("/b1s/v1/BusinessPartners").
		Reply(http.StatusOK).
		JSON(map[string]any{"value": []map[string]string{{"CardCode": "C001", "CardName": "ACME"}}})

	partners, err := getClient(t).BusinessPartners(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []sap.BusinessPartner{{CardCode: "C001", CardName: "ACME"}}, partners)
	assert.True(t, gock.IsDone())
}

func TestCustomers(t *testing.T) {
	defer gock.Off()
	mockLogin(1)
	gock.New(sapAddr).
		Get("/b1s/v1/BusinessPartners").
		MatchParam("$filter", "CardType eq 'cCustomer'").
		MatchParam("$top", "100").
		Reply(http.StatusOK).
		JSON(map[string]any{"value": []map[string]string{{"CardCode": "C001", "CardName": "ACME"}}})

	customers, err := getClient(t).Customers(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "C001", customers[0].CardCode)
}

func TestBusinessPartnersPreferHeader(t *testing.T) {
	defer gock.Off()
	mockLogin(1)
	gock.New(sapAddr).
		Get("/b1s/v1/BusinessPartners").
		MatchHeader("Prefer", "odata.pagemaxsize=0").
		Reply(http.StatusOK).
		JSON(map[string]any{"value": nil})

	partners, err := getClient(t).BusinessPartners(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, partners)
	assert.Empty(t, partners)
}

func testInvoice() *sap.Invoice {
	return &sap.Invoice{
		DocDate:    "2024-05-01",
		DocDueDate: "2024-05-02",
		CardCode:   "C001",
		DocumentLines: []sap.DocumentLine{{
			ItemCode:      "ITM-A",
			Quantity:      1,
			WarehouseCode: "WH1",
			TaxCode:       "CSGST@18",
			SerialNumbers: []sap.SerialNumber{{InternalSerialNumber: "SN1", BaseLineNumber: 0, Quantity: 1}},
		}},
	}
}

func TestCreateInvoice(t *testing.T) {
	defer gock.Off()
	mockLogin(1)
	gock.New(sapAddr).
		Post("/b1s/v1/Invoices").
		MatchType("json").
		Reply(http.StatusCreated).
		JSON(map[string]any{"DocEntry": 412, "DocNum": 1000412, "DocTotal": 1180.5, "CardCode": "C001"})

	created, err := getClient(t).CreateInvoice(context.Background(), testInvoice())
	require.NoError(t, err)
	assert.Equal(t, 412, created.DocEntry)
	assert.Equal(t, "1000412", created.DocNum.String())
	assert.Equal(t, "1180.5", created.DocTotal.String())
	assert.Contains(t, string(created.Raw), `"CardCode":"C001"`)
}

func TestCreateInvoiceRejected(t *testing.T) {
	defer gock.Off()
	mockLogin(1)
	body := `{"error":{"code":-10,"message":{"lang":"en-us","value":"Serial number SN1 is not available"}}}`
	gock.New(sapAddr).
		Post("/b1s/v1/Invoices").
		Reply(http.StatusBadRequest).
		BodyString(body)

	_, err := getClient(t).CreateInvoice(context.Background(), testInvoice())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.RemoteRejected))
	assert.Equal(t, "Serial number SN1 is not available", err.Error())

	var se *sap.SubmissionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, body, string(se.Raw))
}

func TestCreateInvoicePlainTextError(t *testing.T) {
	defer gock.Off()
	mockLogin(1)
	gock.New(sapAddr).
		Post("/b1s/v1/Invoices").
		Reply(http.StatusInternalServerError).
		BodyString("Internal Server Error")

	_, err := getClient(t).CreateInvoice(context.Background(), testInvoice())
	assert.True(t, errors.Is(err, apperr.RemoteRejected))
	assert.Equal(t, "Internal Server Error", err.Error())
}

func TestArgsNewClient(t *testing.T) {
	c, err := sap.Args{SAPURL: sapAddr, SAPCompanyDB: "SBODEMO", SAPUsername: "manager"}.NewClient()
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = sap.Args{SAPURL: sapAddr, SAPCAPath: "/nonexistent/ca.pem"}.NewClient()
	assert.ErrorContains(t, err, "sap ca")
}
