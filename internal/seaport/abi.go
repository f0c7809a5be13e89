package seaport

import "github.com/ethereum/go-ethereum/accounts/abi"

const offerItemComponents = `[
  {"name":"itemType","type":"uint8"},
  {"name":"token","type":"address"},
  {"name":"identifierOrCriteria","type":"uint256"},
  {"name":"startAmount","type":"uint256"},
  {"name":"endAmount","type":"uint256"}
]`

const considerationItemComponents = `[
  {"name":"itemType","type":"uint8"},
  {"name":"token","type":"address"},
  {"name":"identifierOrCriteria","type":"uint256"},
  {"name":"startAmount","type":"uint256"},
  {"name":"endAmount","type":"uint256"},
  {"name":"recipient","type":"address"}
]`

// marketplaceABI is the trimmed protocol surface the backend touches: hashing
// and counters for listing creation, status for the settlement sweep, and
// fulfillOrder for operator-driven buys.
const marketplaceABI = `[
  {
    "name": "getOrderHash",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{
      "name": "order",
      "type": "tuple",
      "components": [
        {"name":"offerer","type":"address"},
        {"name":"zone","type":"address"},
        {"name":"offer","type":"tuple[]","components":` + offerItemComponents + `},
        {"name":"consideration","type":"tuple[]","components":` + considerationItemComponents + `},
        {"name":"orderType","type":"uint8"},
        {"name":"startTime","type":"uint256"},
        {"name":"endTime","type":"uint256"},
        {"name":"zoneHash","type":"bytes32"},
        {"name":"salt","type":"uint256"},
        {"name":"conduitKey","type":"bytes32"},
        {"name":"counter","type":"uint256"}
      ]
    }],
    "outputs": [{"name":"orderHash","type":"bytes32"}]
  },
  {
    "name": "getCounter",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{"name":"offerer","type":"address"}],
    "outputs": [{"name":"counter","type":"uint256"}]
  },
  {
    "name": "getOrderStatus",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{"name":"orderHash","type":"bytes32"}],
    "outputs": [
      {"name":"isValidated","type":"bool"},
      {"name":"isCancelled","type":"bool"},
      {"name":"totalFilled","type":"uint256"},
      {"name":"totalSize","type":"uint256"}
    ]
  },
  {
    "name": "information",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [
      {"name":"version","type":"string"},
      {"name":"domainSeparator","type":"bytes32"},
      {"name":"conduitController","type":"address"}
    ]
  },
  {
    "name": "fulfillOrder",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      {
        "name": "order",
        "type": "tuple",
        "components": [
          {
            "name": "parameters",
            "type": "tuple",
            "components": [
              {"name":"offerer","type":"address"},
              {"name":"zone","type":"address"},
              {"name":"offer","type":"tuple[]","components":` + offerItemComponents + `},
              {"name":"consideration","type":"tuple[]","components":` + considerationItemComponents + `},
              {"name":"orderType","type":"uint8"},
              {"name":"startTime","type":"uint256"},
              {"name":"endTime","type":"uint256"},
              {"name":"zoneHash","type":"bytes32"},
              {"name":"salt","type":"uint256"},
              {"name":"conduitKey","type":"bytes32"},
              {"name":"totalOriginalConsiderationItems","type":"uint256"}
            ]
          },
          {"name":"signature","type":"bytes"}
        ]
      },
      {"name":"fulfillerConduitKey","type":"bytes32"}
    ],
    "outputs": [{"name":"fulfilled","type":"bool"}]
  }
]`

// approvalABI is the token approval surface on the collection contract.
const approvalABI = `[
  {
    "name": "isApprovedForAll",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      {"name":"owner","type":"address"},
      {"name":"operator","type":"address"}
    ],
    "outputs": [{"name":"approved","type":"bool"}]
  },
  {
    "name": "setApprovalForAll",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name":"operator","type":"address"},
      {"name":"approved","type":"bool"}
    ],
    "outputs": []
  }
]`

func parseMarketplaceABI() (abi.ABI, error) {
	return abi.JSON(stringsReader(marketplaceABI))
}

func parseApprovalABI() (abi.ABI, error) {
	return abi.JSON(stringsReader(approvalABI))
}
