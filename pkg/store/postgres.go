package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/matst80/slask-catalog/pkg/config"
	"github.com/matst80/slask-catalog/pkg/types"
)

// PostgresStore reads the catalog tables through database/sql on the pgx
// driver. Every load runs inside one read-only repeatable-read transaction
// so all tables come from the same snapshot.
type PostgresStore struct {
	db *sql.DB
	sq squirrel.StatementBuilderType
}

func NewPostgresStore(cfg config.StoreConfig) (*PostgresStore, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewPostgresStoreFromDB(db), nil
}

func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var snapshotTx = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

func (s *PostgresStore) inSnapshot(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, snapshotTx)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) LoadCategories(ctx context.Context) ([]types.Category, error) {
	var ret []types.Category
	err := s.inSnapshot(ctx, func(tx *sql.Tx) (err error) {
		ret, err = s.categories(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *PostgresStore) LoadCatalog(ctx context.Context) (*types.Catalog, error) {
	c := &types.Catalog{}
	err := s.inSnapshot(ctx, func(tx *sql.Tx) (err error) {
		if c.Categories, err = s.categories(ctx, tx); err != nil {
			return err
		}
		if c.Brands, err = s.brands(ctx, tx); err != nil {
			return err
		}
		if c.Collections, err = s.collections(ctx, tx); err != nil {
			return err
		}
		c.Products, err = s.products(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func query(ctx context.Context, tx *sql.Tx, b squirrel.SelectBuilder, scan func(*sql.Rows) error) error {
	q, args, err := b.ToSql()
	if err != nil {
		return err
	}
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *PostgresStore) categories(ctx context.Context, tx *sql.Tx) ([]types.Category, error) {
	var ret []types.Category
	index := map[string]int{}
	err := query(ctx, tx, s.sq.Select("id", "slug", "name", "parent_id").From("categories").OrderBy("id"), func(rows *sql.Rows) error {
		var c types.Category
		var parent sql.NullString
		if err := rows.Scan(&c.Id, &c.Slug, &c.Name, &parent); err != nil {
			return err
		}
		if parent.Valid && parent.String != "" {
			c.ParentId = &parent.String
		}
		index[c.Id] = len(ret)
		ret = append(ret, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	defs := s.sq.Select("id", "spec_key", "name", "category_id").
		From("specification_definitions").
		OrderBy("category_id", "id")
	err = query(ctx, tx, defs, func(rows *sql.Rows) error {
		var d types.SpecificationDefinition
		if err := rows.Scan(&d.Id, &d.Key, &d.Name, &d.CategoryId); err != nil {
			return err
		}
		if i, ok := index[d.CategoryId]; ok {
			ret[i].Specifications = append(ret[i].Specifications, d)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load specification definitions: %w", err)
	}
	return ret, nil
}

func (s *PostgresStore) brands(ctx context.Context, tx *sql.Tx) ([]types.Brand, error) {
	var ret []types.Brand
	err := query(ctx, tx, s.sq.Select("id", "slug", "name").From("brands").OrderBy("id"), func(rows *sql.Rows) error {
		var b types.Brand
		var slug sql.NullString
		if err := rows.Scan(&b.Id, &slug, &b.Name); err != nil {
			return err
		}
		b.Slug = slug.String
		ret = append(ret, b)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load brands: %w", err)
	}
	return ret, nil
}

func (s *PostgresStore) collections(ctx context.Context, tx *sql.Tx) ([]types.Collection, error) {
	var ret []types.Collection
	err := query(ctx, tx, s.sq.Select("id", "slug", "name").From("collections").OrderBy("id"), func(rows *sql.Rows) error {
		var c types.Collection
		var slug sql.NullString
		if err := rows.Scan(&c.Id, &slug, &c.Name); err != nil {
			return err
		}
		c.Slug = slug.String
		ret = append(ret, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	return ret, nil
}

func (s *PostgresStore) products(ctx context.Context, tx *sql.Tx) ([]types.Product, error) {
	var ret []types.Product
	index := map[string]int{}
	cols := []string{"id", "sku", "name", "slug", "price", "brand_id", "category_id", "stock_status", "popularity", "created_at", "img"}
	err := query(ctx, tx, s.sq.Select(cols...).From("products").OrderBy("id"), func(rows *sql.Rows) error {
		var p types.Product
		var sku, slug, brand, cat, img sql.NullString
		var stock string
		if err := rows.Scan(&p.Id, &sku, &p.Name, &slug, &p.Price, &brand, &cat, &stock, &p.Popularity, &p.CreatedAt, &img); err != nil {
			return err
		}
		p.Sku, p.Slug, p.BrandId, p.CategoryId, p.Img = sku.String, slug.String, brand.String, cat.String, img.String
		p.StockStatus = types.StockStatus(stock)
		index[p.Id] = len(ret)
		ret = append(ret, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	err = query(ctx, tx, s.sq.Select("product_id", "collection_id").From("product_collections"), func(rows *sql.Rows) error {
		var productId, collectionId string
		if err := rows.Scan(&productId, &collectionId); err != nil {
			return err
		}
		if i, ok := index[productId]; ok {
			ret[i].CollectionIds = append(ret[i].CollectionIds, collectionId)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load collection membership: %w", err)
	}

	values := s.sq.Select("v.product_id", "v.definition_id", "d.spec_key", "v.value").
		From("specification_values v").
		Join("specification_definitions d ON d.id = v.definition_id").
		OrderBy("v.product_id", "v.definition_id")
	err = query(ctx, tx, values, func(rows *sql.Rows) error {
		var v types.SpecificationValue
		if err := rows.Scan(&v.ProductId, &v.DefinitionId, &v.DefinitionKey, &v.Value); err != nil {
			return err
		}
		i, ok := index[v.ProductId]
		if !ok {
			return nil
		}
		if ret[i].Specs == nil {
			ret[i].Specs = map[string]string{}
		}
		// one value per key; the lowest definition id wins
		if _, exists := ret[i].Specs[v.DefinitionKey]; !exists {
			ret[i].Specs[v.DefinitionKey] = v.Value
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load specification values: %w", err)
	}
	return ret, nil
}
