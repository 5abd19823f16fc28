package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/wms-backend/pkg/apperr"
	"github.com/denysvitali/wms-backend/pkg/invoice"
	"github.com/denysvitali/wms-backend/pkg/lookup"
	"github.com/denysvitali/wms-backend/pkg/models"
	"github.com/denysvitali/wms-backend/pkg/sap"
)

const UserHeader = "X-User-ID"

type Invoices interface {
	ValidateSerial(ctx context.Context, serial string) (*lookup.Result, error)
	RefreshSerial(ctx context.Context, serial string) (*lookup.Result, error)
	CreateInvoice(ctx context.Context, req invoice.CreateRequest) (*invoice.CreateResult, error)
	Get(ctx context.Context, id string) (*models.InvoiceDocument, error)
	List(ctx context.Context, userID string) ([]models.InvoiceDocument, error)
}

type Directory interface {
	Customers(ctx context.Context) ([]sap.BusinessPartner, error)
	BusinessPartners(ctx context.Context) ([]sap.BusinessPartner, error)
}

type Searcher interface {
	Search(ctx context.Context, term string) ([]json.RawMessage, error)
}

type Server struct {
	e         *gin.Engine
	invoices  Invoices
	directory Directory
	searcher  Searcher
}

type Option func(*Server)

// WithSearcher enables POST /api/v1/invoices/search.
func WithSearcher(searcher Searcher) Option {
	return func(s *Server) {
		s.searcher = searcher
	}
}

var log = logrus.StandardLogger().WithField("package", "backend")

func New(invoices Invoices, directory Directory, opts ...Option) *Server {
	s := Server{
		e:         gin.New(),
		invoices:  invoices,
		directory: directory,
	}
	for _, o := range opts {
		o(&s)
	}
	s.initRoutes()
	return &s
}

func (s *Server) Run(addr string) error {
	return s.e.Run(addr)
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) initRoutes() {
	s.e.Use(gin.Logger())
	s.e.Use(gin.Recovery())
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AddAllowHeaders(UserHeader)
	s.e.Use(cors.New(corsConfig))

	s.e.GET("/healthz", s.handleHealthz)

	g := s.e.Group("/api/v1")
	g.GET("/customers", s.handleCustomers)
	g.GET("/business-partners", s.handleBusinessPartners)
	g.GET("/serials/:serial", s.handleGetSerial)
	g.POST("/serials/lookup", s.handleLookupSerial)
	g.POST("/invoices", s.handleCreateInvoice)
	g.GET("/invoices", s.handleListInvoices)
	g.POST("/invoices/search", s.handleSearch)
	g.GET("/invoices/:id", s.handleGetInvoice)
}

var badRequest = gin.H{
	"success": false,
	"kind":    apperr.Validation,
	"message": "bad request",
}

var statusByKind = map[apperr.Kind]int{
	apperr.Validation:        http.StatusBadRequest,
	apperr.NotFound:          http.StatusNotFound,
	apperr.RemoteRejected:    http.StatusUnprocessableEntity,
	apperr.RemoteUnavailable: http.StatusServiceUnavailable,
	apperr.PersistenceFailed: http.StatusInternalServerError,
	apperr.Unreconciled:      http.StatusInternalServerError,
}

func (s *Server) abort(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		log.Debugf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	body := gin.H{
		"success": false,
		"kind":    kind,
		"message": apperr.Public(err),
	}
	if e, ok := apperr.As(err); ok && e.Serial != "" {
		body["serial_number"] = e.Serial
	}
	c.JSON(status, body)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCustomers(c *gin.Context) {
	customers, err := s.directory.Customers(c.Request.Context())
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "customers": customers})
}

func (s *Server) handleBusinessPartners(c *gin.Context) {
	partners, err := s.directory.BusinessPartners(c.Request.Context())
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "business_partners": partners})
}

func (s *Server) serialResponse(c *gin.Context, res *lookup.Result) {
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"data":         res.Attributes,
		"cached":       res.Cached,
		"last_updated": res.LastUpdated,
	})
}

func (s *Server) handleGetSerial(c *gin.Context) {
	serial := c.Param("serial")
	var res *lookup.Result
	var err error
	if c.Query("refresh") == "true" {
		res, err = s.invoices.RefreshSerial(c.Request.Context(), serial)
	} else {
		res, err = s.invoices.ValidateSerial(c.Request.Context(), serial)
	}
	if err != nil {
		s.abort(c, err)
		return
	}
	s.serialResponse(c, res)
}

type LookupRequest struct {
	SerialNumber string `json:"serial_number"`
}

func (s *Server) handleLookupSerial(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}
	res, err := s.invoices.ValidateSerial(c.Request.Context(), req.SerialNumber)
	if err != nil {
		s.abort(c, err)
		return
	}
	s.serialResponse(c, res)
}

type CreateInvoiceRequest struct {
	CustomerCode  string   `json:"customer_code"`
	CustomerName  string   `json:"customer_name"`
	InvoiceDate   string   `json:"invoice_date"`
	SerialNumbers []string `json:"serial_numbers"`
}

func (s *Server) handleCreateInvoice(c *gin.Context) {
	var body CreateInvoiceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}

	req := invoice.CreateRequest{
		UserID:        c.GetHeader(UserHeader),
		CustomerCode:  body.CustomerCode,
		CustomerName:  body.CustomerName,
		SerialNumbers: body.SerialNumbers,
	}
	if d := strings.TrimSpace(body.InvoiceDate); d != "" {
		t, err := time.Parse(invoice.DateFormat, d)
		if err != nil {
			s.abort(c, apperr.Validationf("invalid invoice date %q, expected YYYY-MM-DD", d))
			return
		}
		req.DocDate = &t
	}

	res, err := s.invoices.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"message":        "Invoice created successfully",
		"invoice_id":     res.InvoiceID,
		"invoice_number": res.DocNumber,
		"doc_entry":      res.DocEntry,
		"total_amount":   res.Total,
	})
}

func (s *Server) handleListInvoices(c *gin.Context) {
	docs, err := s.invoices.List(c.Request.Context(), c.GetHeader(UserHeader))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "invoices": docs})
}

func (s *Server) handleGetInvoice(c *gin.Context) {
	doc, err := s.invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "invoice": doc})
}

type SearchRequest struct {
	SearchTerm string `json:"searchTerm"`
}

func (s *Server) handleSearch(c *gin.Context) {
	if s.searcher == nil {
		s.abort(c, apperr.NotFoundf("search is not enabled"))
		return
	}
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SearchTerm) == "" {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}
	hits, err := s.searcher.Search(c.Request.Context(), req.SearchTerm)
	if err != nil {
		s.abort(c, apperr.Persistence(fmt.Errorf("unable to perform search: %w", err)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "invoices": hits})
}
