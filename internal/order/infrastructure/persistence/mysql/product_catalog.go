package mysql

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/shopmetrics/internal/order/domain"
	"gorm.io/gorm"
)

// ProductModel 商品目录表
type ProductModel struct {
	gorm.Model
	ProductID string          `gorm:"column:product_id;type:varchar(36);uniqueIndex;not null"`
	Name      string          `gorm:"column:name;type:varchar(200);not null"`
	ImageURL  string          `gorm:"column:image_url;type:varchar(500)"`
	Price     decimal.Decimal `gorm:"column:price;type:decimal(20,2);not null"`
}

// TableName 指定表名
func (ProductModel) TableName() string { return "products" }

type productCatalog struct{ db *gorm.DB }

// NewProductCatalog 构造商品目录查询
func NewProductCatalog(db *gorm.DB) domain.ProductCatalog {
	return &productCatalog{db: db}
}

func (c *productCatalog) Describe(ctx context.Context, productIDs []string) (map[string]domain.ProductInfo, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var rows []ProductModel
	err := c.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	infos := make(map[string]domain.ProductInfo, len(rows))
	for _, row := range rows {
		infos[row.ProductID] = domain.ProductInfo{
			ProductID: row.ProductID,
			Name:      row.Name,
			ImageURL:  row.ImageURL,
		}
	}
	return infos, nil
}

func (c *productCatalog) Missing(ctx context.Context, productIDs []string) ([]string, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var found []string
	err := c.db.WithContext(ctx).
		Model(&ProductModel{}).
		Where("product_id IN ?", productIDs).
		Pluck("product_id", &found).Error
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	var missing []string
	seen := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
