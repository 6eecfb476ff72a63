package auth

import "golang.org/x/crypto/bcrypt"

// PasswordDigest 单向口令摘要
type PasswordDigest interface {
	Hash(plain string) (string, error)
	Compare(hashed, plain string) bool
}

// BcryptDigest bcrypt 实现
type BcryptDigest struct {
	Cost int
}

// NewBcryptDigest 创建 bcrypt 摘要，cost 非法时使用默认值
func NewBcryptDigest(cost int) *BcryptDigest {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptDigest{Cost: cost}
}

// Hash 生成摘要
func (d *BcryptDigest) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), d.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare 校验口令
func (d *BcryptDigest) Compare(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
