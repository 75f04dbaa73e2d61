package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/uristernik/javaproject/internal/checkout"
	"github.com/uristernik/javaproject/internal/database"
	"github.com/uristernik/javaproject/internal/store"
)

type checkoutItemPayload struct {
	ProductID  int64   `json:"productId"`
	Quantity   float64 `json:"quantity"`
	PricePerKG int64   `json:"pricePerKG"`
}

type checkoutPayload struct {
	UserID          int64                 `json:"userId"`
	DeliveryAddress string                `json:"deliveryAddress"`
	TotalPrice      float64               `json:"totalPrice"`
	Items           []checkoutItemPayload `json:"items"`
}

func handleCheckout(coordinator *checkout.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var payload checkoutPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req := checkout.Request{
			UserID:          payload.UserID,
			DeliveryAddress: payload.DeliveryAddress,
			TotalPrice:      decimal.NewFromFloat(payload.TotalPrice),
		}
		for _, item := range payload.Items {
			req.Items = append(req.Items, checkout.Item{
				ProductID:  item.ProductID,
				QuantityKG: decimal.NewFromFloat(item.Quantity),
				PricePerKG: item.PricePerKG,
			})
		}

		orderID, err := coordinator.Process(r.Context(), req)
		if err != nil {
			respondError(w, statusForError(err), err.Error())
			return
		}

		respondJSON(w, http.StatusOK, map[string]int64{"orderId": orderID})
	}
}

func handleInventory(ledger *store.StockLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodGet:
			records, err := ledger.List(ctx)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			respondJSON(w, http.StatusOK, records)

		case http.MethodPost:
			var req struct {
				Description string  `json:"description"`
				StockKG     float64 `json:"stockKG"`
				PricePerKG  int64   `json:"pricePerKG"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			record, err := ledger.AddProduct(ctx, req.Description, decimal.NewFromFloat(req.StockKG), req.PricePerKG)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}

			respondJSON(w, http.StatusCreated, record)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleInventoryByID(ledger *store.StockLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rest := r.URL.Path[len("/inventory/"):]

		if rest == "update-batch" {
			handleUpdateBatch(ledger, w, r)
			return
		}

		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		switch r.Method {
		case http.MethodGet:
			record, err := ledger.Get(ctx, id)
			if err != nil {
				respondError(w, statusForError(err), err.Error())
				return
			}
			respondJSON(w, http.StatusOK, record)

		case http.MethodPost:
			// Admin update: absolute stock and/or price overwrite.
			var req struct {
				StockKG    *float64 `json:"stockKG"`
				PricePerKG *int64   `json:"pricePerKG"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			if req.StockKG == nil && req.PricePerKG == nil {
				respondError(w, http.StatusBadRequest, "Nothing to update")
				return
			}

			if req.StockKG != nil {
				if err := ledger.SetStock(ctx, id, decimal.NewFromFloat(*req.StockKG)); err != nil {
					respondError(w, statusForError(err), err.Error())
					return
				}
			}
			if req.PricePerKG != nil {
				if err := ledger.SetPrice(ctx, id, *req.PricePerKG); err != nil {
					respondError(w, statusForError(err), err.Error())
					return
				}
			}

			w.WriteHeader(http.StatusOK)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleUpdateBatch(ledger *store.StockLedger, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var payload []struct {
		ProductID int64   `json:"productId"`
		Quantity  float64 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	items := make([]store.ReserveItem, 0, len(payload))
	for _, item := range payload {
		items = append(items, store.ReserveItem{
			ProductID:  item.ProductID,
			QuantityKG: decimal.NewFromFloat(item.Quantity),
		})
	}

	if err := ledger.Reserve(r.Context(), items); err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
}

func handleOrders(orders *store.OrderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		all, err := orders.ListAll(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondJSON(w, http.StatusOK, all)
	}
}

func handleOrderByID(orders *store.OrderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rest := r.URL.Path[len("/orders/"):]

		switch {
		case rest == "create":
			handleCreateOrder(orders, w, r)

		case strings.HasPrefix(rest, "user/"):
			userID, err := strconv.ParseInt(rest[len("user/"):], 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid user ID")
				return
			}

			history, err := orders.ListByUser(ctx, userID)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			respondJSON(w, http.StatusOK, history)

		default:
			id, err := strconv.ParseInt(rest, 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid order ID")
				return
			}

			order, err := orders.Get(ctx, id)
			if err != nil {
				respondError(w, statusForError(err), err.Error())
				return
			}
			respondJSON(w, http.StatusOK, order)
		}
	}
}

func handleCreateOrder(orders *store.OrderStore, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var payload checkoutPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req := store.CreateOrderRequest{
		UserID:          payload.UserID,
		DeliveryAddress: payload.DeliveryAddress,
		TotalPrice:      decimal.NewFromFloat(payload.TotalPrice),
	}
	for _, item := range payload.Items {
		req.Lines = append(req.Lines, store.OrderLineRequest{
			ProductID:  item.ProductID,
			QuantityKG: decimal.NewFromFloat(item.Quantity),
			PricePerKG: item.PricePerKG,
		})
	}

	orderID, err := orders.Create(r.Context(), req)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"orderId": orderID})
}

func handleUsers(users *store.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodGet:
			all, err := users.List(ctx)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			respondJSON(w, http.StatusOK, all)

		case http.MethodPost:
			var req struct {
				FirstName string `json:"firstName"`
				LastName  string `json:"lastName"`
				Email     string `json:"email"`
				Phone     string `json:"phone"`
				Type      int    `json:"type"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			user, err := users.Create(ctx, req.FirstName, req.LastName, req.Email, req.Phone, req.Type)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}

			respondJSON(w, http.StatusCreated, user)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleUserByID(users *store.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := r.URL.Path[len("/users/"):]
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid user ID")
			return
		}

		user, err := users.Get(r.Context(), id)
		if err != nil {
			respondError(w, statusForError(err), err.Error())
			return
		}

		respondJSON(w, http.StatusOK, user)
	}
}

func handleHealth(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, checkout.ErrInvalidRequest),
		errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrUserNotFound):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrOrderNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
