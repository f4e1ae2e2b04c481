package eth

// contractABI is the FundChain contract interface. Method names, argument
// order and output names must match the deployed contract
const contractABI = `[
  {"type":"function","name":"createCampaign","stateMutability":"nonpayable","outputs":[],
   "inputs":[
     {"internalType":"string","name":"_name","type":"string"},
     {"internalType":"string","name":"_description","type":"string"},
     {"internalType":"uint256","name":"_target","type":"uint256"},
     {"internalType":"uint256","name":"_deadline","type":"uint256"}]},
  {"type":"function","name":"fundCampaign","stateMutability":"payable","outputs":[],
   "inputs":[{"internalType":"uint256","name":"_campaignId","type":"uint256"}]},
  {"type":"function","name":"withdrawFunds","stateMutability":"nonpayable","outputs":[],
   "inputs":[{"internalType":"uint256","name":"_campaignId","type":"uint256"}]},
  {"type":"function","name":"refund","stateMutability":"nonpayable","outputs":[],
   "inputs":[{"internalType":"uint256","name":"_campaignId","type":"uint256"}]},
  {"type":"function","name":"completeCampaign","stateMutability":"nonpayable","outputs":[],
   "inputs":[{"internalType":"uint256","name":"_campaignId","type":"uint256"}]},
  {"type":"function","name":"campaignCount","stateMutability":"view","inputs":[],
   "outputs":[{"internalType":"uint256","name":"","type":"uint256"}]},
  {"type":"function","name":"campaigns","stateMutability":"view",
   "inputs":[{"internalType":"uint256","name":"","type":"uint256"}],
   "outputs":[
     {"internalType":"address","name":"CampaignCreator","type":"address"},
     {"internalType":"string","name":"CampaignName","type":"string"},
     {"internalType":"string","name":"CampaignDescription","type":"string"},
     {"internalType":"uint256","name":"CampaignTarget","type":"uint256"},
     {"internalType":"uint256","name":"CampaignDeadline","type":"uint256"},
     {"internalType":"uint256","name":"CampaignAmount","type":"uint256"},
     {"internalType":"uint256","name":"CampaignAmountRaised","type":"uint256"},
     {"internalType":"uint256","name":"CampaignAmountWithdrawn","type":"uint256"},
     {"internalType":"uint256","name":"CampaignAmountRefunded","type":"uint256"},
     {"internalType":"bool","name":"CampaignCompleted","type":"bool"}]},
  {"type":"function","name":"contributions","stateMutability":"view",
   "inputs":[{"internalType":"address","name":"","type":"address"}],
   "outputs":[{"internalType":"uint256","name":"","type":"uint256"}]}
]`
