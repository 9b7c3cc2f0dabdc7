package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore 基于 PostgreSQL 的 Store 实现。
// 幂等性策略：
//   - 事件表以交易签名为主键，ON CONFLICT DO NOTHING；
//   - 实体表 ON CONFLICT DO UPDATE（last-write-wins）；
//   - vault 数组用条件 array_append，同键并发写由单条 UPDATE 的原子性保证。
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) EnsureUser(ctx context.Context, address string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (address, created_at)
		VALUES ($1, CURRENT_TIMESTAMP)
		ON CONFLICT (address) DO NOTHING
	`, address)
	if err != nil {
		return false, fmt.Errorf("ensure user %s: %w", address, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) UpsertProduct(ctx context.Context, p *Product) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (address, authority, marketplace, product_mint, merkle_tree, payment_mint, price, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		ON CONFLICT (address) DO UPDATE SET
			authority    = EXCLUDED.authority,
			marketplace  = EXCLUDED.marketplace,
			product_mint = EXCLUDED.product_mint,
			merkle_tree  = EXCLUDED.merkle_tree,
			payment_mint = EXCLUDED.payment_mint,
			price        = EXCLUDED.price,
			updated_at   = CURRENT_TIMESTAMP
	`, p.Address, p.Authority, p.Marketplace, p.ProductMint, p.MerkleTree, p.PaymentMint, p.Price)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.Address, err)
	}
	return nil
}

func (s *PostgresStore) UpsertMarketplace(ctx context.Context, m *Marketplace) error {
	// 标量字段覆盖写；vault 列表不在这里覆盖，逐个条件追加
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO marketplaces (
			address, authority, access_mint, reward_mint, discount_mint,
			fee, fee_reduction, seller_reward, buyer_reward,
			transferable, permissionless, rewards_enabled, fee_payer,
			bounty_vaults, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, '{}'::text[], CURRENT_TIMESTAMP)
		ON CONFLICT (address) DO UPDATE SET
			authority       = EXCLUDED.authority,
			access_mint     = EXCLUDED.access_mint,
			reward_mint     = EXCLUDED.reward_mint,
			discount_mint   = EXCLUDED.discount_mint,
			fee             = EXCLUDED.fee,
			fee_reduction   = EXCLUDED.fee_reduction,
			seller_reward   = EXCLUDED.seller_reward,
			buyer_reward    = EXCLUDED.buyer_reward,
			transferable    = EXCLUDED.transferable,
			permissionless  = EXCLUDED.permissionless,
			rewards_enabled = EXCLUDED.rewards_enabled,
			fee_payer       = EXCLUDED.fee_payer,
			updated_at      = CURRENT_TIMESTAMP
	`, m.Address, m.Authority, m.AccessMint, m.RewardMint, m.DiscountMint,
		int32(m.Fee), int32(m.FeeReduction), int32(m.SellerReward), int32(m.BuyerReward),
		m.Transferable, m.Permissionless, m.RewardsEnabled, int16(m.FeePayer))
	if err != nil {
		return fmt.Errorf("upsert marketplace %s: %w", m.Address, err)
	}

	for _, vault := range m.BountyVaults {
		if _, err := s.AppendBountyVault(ctx, m.Address, vault); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) AppendBountyVault(ctx context.Context, marketplace, vault string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE marketplaces
		SET bounty_vaults = array_append(bounty_vaults, $2), updated_at = CURRENT_TIMESTAMP
		WHERE address = $1 AND NOT ($2 = ANY(bounty_vaults))
	`, marketplace, vault)
	if err != nil {
		return false, fmt.Errorf("append bounty vault %s -> %s: %w", vault, marketplace, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) UpsertReward(ctx context.Context, r *Reward) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rewards (address, authority, marketplace, reward_mint, reward_vaults, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		ON CONFLICT (address) DO UPDATE SET
			authority   = EXCLUDED.authority,
			marketplace = EXCLUDED.marketplace,
			reward_mint = EXCLUDED.reward_mint,
			updated_at  = CURRENT_TIMESTAMP
	`, r.Address, r.Authority, r.Marketplace, r.RewardMint, pq.Array(r.RewardVaults))
	if err != nil {
		return fmt.Errorf("upsert reward %s: %w", r.Address, err)
	}

	for _, vault := range r.RewardVaults {
		if _, err := s.AppendRewardVault(ctx, r.Address, vault); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) AppendRewardVault(ctx context.Context, reward, vault string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rewards
		SET reward_vaults = array_append(reward_vaults, $2), updated_at = CURRENT_TIMESTAMP
		WHERE address = $1 AND NOT ($2 = ANY(reward_vaults))
	`, reward, vault)
	if err != nil {
		return false, fmt.Errorf("append reward vault %s -> %s: %w", vault, reward, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) UpsertAccessRequest(ctx context.Context, r *AccessRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_requests (address, authority, marketplace, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (address) DO UPDATE SET
			authority   = EXCLUDED.authority,
			marketplace = EXCLUDED.marketplace,
			updated_at  = CURRENT_TIMESTAMP
	`, r.Address, r.Authority, r.Marketplace)
	if err != nil {
		return fmt.Errorf("upsert access request %s: %w", r.Address, err)
	}
	return nil
}

func (s *PostgresStore) InsertAccessGrant(ctx context.Context, g *AccessGrant) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO access_grants (
			signature, kind, signer, receiver, marketplace,
			request, access_mint, access_vault, block_time, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)
		ON CONFLICT (signature) DO NOTHING
	`, g.Signature, g.Kind, g.Signer, g.Receiver, g.Marketplace,
		g.Request, g.AccessMint, g.AccessVault, g.BlockTime)
	if err != nil {
		return false, fmt.Errorf("insert access grant %s: %w", g.Signature, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) InsertPurchase(ctx context.Context, p *Purchase) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO purchase_events (
			signature, signer, product, payment_mint, buyer_vault, seller_vault,
			amount, decimals, block_time, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)
		ON CONFLICT (signature) DO NOTHING
	`, p.Signature, p.Signer, p.Product, p.PaymentMint, p.BuyerVault, p.SellerVault,
		p.Amount, int16(p.Decimals), p.BlockTime)
	if err != nil {
		return false, fmt.Errorf("insert purchase %s: %w", p.Signature, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) InsertRewardWithdrawal(ctx context.Context, w *RewardWithdrawal) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reward_withdrawals (
			signature, signer, marketplace, reward, reward_mint,
			receiver_vault, reward_vault, block_time, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP)
		ON CONFLICT (signature) DO NOTHING
	`, w.Signature, w.Signer, w.Marketplace, w.Reward, w.RewardMint,
		w.ReceiverVault, w.RewardVault, w.BlockTime)
	if err != nil {
		return false, fmt.Errorf("insert reward withdrawal %s: %w", w.Signature, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) GetCatalogProduct(ctx context.Context, id string) (*CatalogProduct, error) {
	var p CatalogProduct
	err := s.db.QueryRowContext(ctx, `
		SELECT id, market, seller, currency, price
		FROM catalog_products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Market, &p.Seller, &p.Currency, &p.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog product %s: %w", id, err)
	}
	return &p, nil
}
