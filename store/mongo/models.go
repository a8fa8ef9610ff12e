package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

// ==================== Customer models ====================

type customerModel struct {
	grove.BaseModel `grove:"table:udhaar_customers"`

	ID          string            `grove:"id,pk"        bson:"_id"`
	Name        string            `grove:"name"         bson:"name"`
	Phone       string            `grove:"phone"        bson:"phone"`
	PhoneDigits string            `grove:"phone_digits" bson:"phone_digits"`
	Address     string            `grove:"address"      bson:"address"`
	Metadata    map[string]string `grove:"metadata"     bson:"metadata,omitempty"`
	CreatedAt   time.Time         `grove:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time         `grove:"updated_at"   bson:"updated_at"`
}

func toCustomerModel(c *customer.Customer) *customerModel {
	return &customerModel{
		ID:          c.ID.String(),
		Name:        c.Name,
		Phone:       c.Phone,
		PhoneDigits: customer.NormalizePhone(c.Phone),
		Address:     c.Address,
		Metadata:    c.Metadata,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func fromCustomerModel(m *customerModel) (*customer.Customer, error) {
	custID, err := id.ParseCustomerID(m.ID)
	if err != nil {
		return nil, err
	}
	return &customer.Customer{
		Entity:   types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:       custID,
		Name:     m.Name,
		Phone:    m.Phone,
		Address:  m.Address,
		Metadata: m.Metadata,
	}, nil
}

// ==================== Bill models ====================

type billModel struct {
	grove.BaseModel `grove:"table:udhaar_bills"`

	ID          string            `grove:"id,pk"        bson:"_id"`
	CustomerID  string            `grove:"customer_id"  bson:"customer_id"`
	Seq         int64             `grove:"seq"          bson:"seq"`
	Date        time.Time         `grove:"date"         bson:"date"`
	Items       []billItemModel   `grove:"items"        bson:"items"`
	Currency    string            `grove:"currency"     bson:"currency"`
	TotalAmount int64             `grove:"total_amount" bson:"total_amount"`
	PaidAmount  int64             `grove:"paid_amount"  bson:"paid_amount"`
	Status      string            `grove:"status"       bson:"status"`
	DueDate     *time.Time        `grove:"due_date"     bson:"due_date,omitempty"`
	Notes       string            `grove:"notes"        bson:"notes,omitempty"`
	Metadata    map[string]string `grove:"metadata"     bson:"metadata,omitempty"`
	CreatedAt   time.Time         `grove:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time         `grove:"updated_at"   bson:"updated_at"`
}

type billItemModel struct {
	ID        string `bson:"id"`
	Name      string `bson:"name"`
	Quantity  int64  `bson:"quantity"`
	UnitPrice int64  `bson:"unit_price"`
}

func toBillModel(b *bill.Bill) *billModel {
	items := make([]billItemModel, len(b.Items))
	for i, it := range b.Items {
		items[i] = billItemModel{
			ID:        it.ID.String(),
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.Amount,
		}
	}
	return &billModel{
		ID:          b.ID.String(),
		CustomerID:  b.CustomerID.String(),
		Seq:         b.Seq,
		Date:        b.Date,
		Items:       items,
		Currency:    b.TotalAmount.Currency,
		TotalAmount: b.TotalAmount.Amount,
		PaidAmount:  b.PaidAmount.Amount,
		Status:      string(b.Status),
		DueDate:     b.DueDate,
		Notes:       b.Notes,
		Metadata:    b.Metadata,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func fromBillModel(m *billModel) (*bill.Bill, error) {
	billID, err := id.ParseBillID(m.ID)
	if err != nil {
		return nil, err
	}
	custID, err := id.ParseCustomerID(m.CustomerID)
	if err != nil {
		return nil, err
	}
	items := make([]bill.Item, len(m.Items))
	for i, it := range m.Items {
		itemID, err := id.ParseBillItemID(it.ID)
		if err != nil {
			return nil, err
		}
		items[i] = bill.Item{
			ID:        itemID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: types.New(it.UnitPrice, m.Currency),
		}
	}

	return &bill.Bill{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          billID,
		CustomerID:  custID,
		Seq:         m.Seq,
		Date:        m.Date,
		Items:       items,
		TotalAmount: types.New(m.TotalAmount, m.Currency),
		PaidAmount:  types.New(m.PaidAmount, m.Currency),
		Status:      bill.Status(m.Status),
		DueDate:     m.DueDate,
		Notes:       m.Notes,
		Metadata:    m.Metadata,
	}, nil
}

// ==================== Transaction models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:udhaar_transactions"`

	ID         string            `grove:"id,pk"       bson:"_id"`
	CustomerID string            `grove:"customer_id" bson:"customer_id"`
	Seq        int64             `grove:"seq"         bson:"seq"`
	Date       time.Time         `grove:"date"        bson:"date"`
	Type       string            `grove:"type"        bson:"type"`
	Currency   string            `grove:"currency"    bson:"currency"`
	Amount     int64             `grove:"amount"      bson:"amount"`
	Unapplied  int64             `grove:"unapplied"   bson:"unapplied"`
	BillID     string            `grove:"bill_id"     bson:"bill_id,omitempty"`
	Method     string            `grove:"method"      bson:"method,omitempty"`
	Notes      string            `grove:"notes"       bson:"notes,omitempty"`
	Metadata   map[string]string `grove:"metadata"    bson:"metadata,omitempty"`
	CreatedAt  time.Time         `grove:"created_at"  bson:"created_at"`
	UpdatedAt  time.Time         `grove:"updated_at"  bson:"updated_at"`
}

func toTransactionModel(t *transaction.Transaction) *transactionModel {
	return &transactionModel{
		ID:         t.ID.String(),
		CustomerID: t.CustomerID.String(),
		Seq:        t.Seq,
		Date:       t.Date,
		Type:       string(t.Type),
		Currency:   t.Amount.Currency,
		Amount:     t.Amount.Amount,
		Unapplied:  t.Unapplied.Amount,
		BillID:     t.BillID.String(),
		Method:     string(t.Method),
		Notes:      t.Notes,
		Metadata:   t.Metadata,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func fromTransactionModel(m *transactionModel) (*transaction.Transaction, error) {
	txnID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	custID, err := id.ParseCustomerID(m.CustomerID)
	if err != nil {
		return nil, err
	}
	var billID id.BillID
	if m.BillID != "" {
		if billID, err = id.ParseBillID(m.BillID); err != nil {
			return nil, err
		}
	}

	t := &transaction.Transaction{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:         txnID,
		CustomerID: custID,
		Seq:        m.Seq,
		Date:       m.Date,
		Type:       transaction.Type(m.Type),
		Amount:     types.New(m.Amount, m.Currency),
		BillID:     billID,
		Method:     transaction.Method(m.Method),
		Notes:      m.Notes,
		Metadata:   m.Metadata,
	}
	if t.Type == transaction.TypePayment {
		t.Unapplied = types.New(m.Unapplied, m.Currency)
	}
	return t, nil
}
