package persistence

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemViewModel maps the View_Items projection consolidating item master,
// inventory and pricing data. The engine only reads it.
type ItemViewModel struct {
	ItemID           int64            `gorm:"column:item_id;primaryKey"`
	SKU              string           `gorm:"column:c_articulo;not null"`
	CCOD             string           `gorm:"column:ccod"`
	Description      string           `gorm:"column:descripcion;not null"`
	Familia          string           `gorm:"column:familia"`
	Categoria        string           `gorm:"column:categoria"`
	ExtendedCategory string           `gorm:"column:categoria_extendida"`
	Genero           string           `gorm:"column:genero"`
	Color            string           `gorm:"column:color"`
	Talla            string           `gorm:"column:talla"`
	Price            decimal.Decimal  `gorm:"column:precio;type:decimal(18,2)"`
	SalePrice        *decimal.Decimal `gorm:"column:precio_oferta;type:decimal(18,2)"`
	SaleStart        *time.Time       `gorm:"column:inicio_oferta"`
	SaleEnd          *time.Time       `gorm:"column:fin_oferta"`
	Quantity         int              `gorm:"column:cantidad;not null;default:0"`
	StockA           int              `gorm:"column:existencia_a;not null;default:0"`
	StockB           int              `gorm:"column:existencia_b;not null;default:0"`
	Tax              decimal.Decimal  `gorm:"column:impuesto;type:decimal(9,4)"`
	LastUpdated      *time.Time       `gorm:"column:last_updated;index"`
}

func (ItemViewModel) TableName() string {
	return "View_Items"
}

// OrderModel represents the RMS Order header table. Orders ingested from the
// commerce channel carry channel_type 2 and a unique reference number.
type OrderModel struct {
	ID              int64           `gorm:"column:id;primaryKey;autoIncrement"`
	StoreID         int             `gorm:"column:store_id;not null"`
	Type            int             `gorm:"column:type;not null"`
	Time            time.Time       `gorm:"column:time;not null"`
	CustomerID      *int64          `gorm:"column:customer_id"`
	Total           decimal.Decimal `gorm:"column:total;type:decimal(18,2);not null"`
	Tax             decimal.Decimal `gorm:"column:tax;type:decimal(18,2);not null"`
	Comment         string          `gorm:"column:comment;type:text"`
	ShippingNotes   string          `gorm:"column:shipping_notes;type:text"`
	ChannelType     int             `gorm:"column:channel_type;not null;uniqueIndex:uq_order_reference"`
	ReferenceNumber string          `gorm:"column:reference_number;not null;uniqueIndex:uq_order_reference"`
}

func (OrderModel) TableName() string {
	return "Order"
}

// OrderEntryModel represents one RMS OrderEntry line.
type OrderEntryModel struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID     int64           `gorm:"column:order_id;not null;index"`
	Order       *OrderModel     `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE;"`
	ItemID      int64           `gorm:"column:item_id;not null"`
	Description string          `gorm:"column:description;size:255"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(18,2);not null"`
	FullPrice   decimal.Decimal `gorm:"column:full_price;type:decimal(18,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
}

func (OrderEntryModel) TableName() string {
	return "OrderEntry"
}

// CustomerModel represents the RMS Customer table.
type CustomerModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Email     string    `gorm:"column:email;index"`
	Name      string    `gorm:"column:name"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (CustomerModel) TableName() string {
	return "Customer"
}

// SyncRunModel persists the structured summary of each sync run for the CLI.
type SyncRunModel struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	SyncID           string    `gorm:"column:sync_id;not null;index"`
	Kind             string    `gorm:"column:kind;not null"`
	StartedAt        time.Time `gorm:"column:started_at;not null"`
	DurationMillis   int64     `gorm:"column:duration_millis;not null"`
	Processed        int       `gorm:"column:processed;not null"`
	Created          int       `gorm:"column:created;not null"`
	Updated          int       `gorm:"column:updated;not null"`
	Skipped          int       `gorm:"column:skipped;not null"`
	Errors           int       `gorm:"column:errors;not null"`
	InventoryUpdated int       `gorm:"column:inventory_updated;not null"`
	InventoryFailed  int       `gorm:"column:inventory_failed;not null"`
	SuccessRate      float64   `gorm:"column:success_rate;not null"`
	ErrorSamples     string    `gorm:"column:error_samples;type:text"`
}

func (SyncRunModel) TableName() string {
	return "sync_runs"
}
