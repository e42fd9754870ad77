package entity

type TokenStandard string

const (
	TokenStandardERC721  TokenStandard = "erc721"
	TokenStandardERC1155 TokenStandard = "erc1155"
)

// IsMultiToken reports whether sale stages of this standard are token-scoped.
func (s TokenStandard) IsMultiToken() bool {
	return s == TokenStandardERC1155
}
